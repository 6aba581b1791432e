package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/unipublish/backend/internal/config"
)

func TestVideoKey(t *testing.T) {
	cases := []struct {
		session  string
		filename string
		want     string
	}{
		{"abc", "clip.mp4", "videos/abc/clip.mp4"},
		{"abc", "../../etc/passwd", "videos/abc/passwd"},
		{"abc", `C:\Users\me\clip.mov`, "videos/abc/clip.mov"},
		{"abc", "", "videos/abc/video"},
		{"abc", "..", "videos/abc/video"},
	}
	for _, tc := range cases {
		got, err := VideoKey(tc.session, tc.filename)
		if err != nil {
			t.Fatalf("VideoKey(%q, %q) error = %v", tc.session, tc.filename, err)
		}
		if got != tc.want {
			t.Fatalf("VideoKey(%q, %q) = %q want %q", tc.session, tc.filename, got, tc.want)
		}
	}

	if _, err := VideoKey("a/b", "clip.mp4"); err == nil {
		t.Fatal("expected error for session id containing a slash")
	}
	if _, err := VideoKey(" ", "clip.mp4"); err == nil {
		t.Fatal("expected error for blank session id")
	}
}

func TestNewVideoArchive(t *testing.T) {
	if _, err := NewVideoArchive(context.Background(), config.ObjectStoreConfig{}); !errors.Is(err, ErrBucketRequired) {
		t.Fatalf("expected ErrBucketRequired got %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	archive, err := NewVideoArchive(context.Background(), config.ObjectStoreConfig{
		Bucket:   "uploads",
		Endpoint: "http://localhost:9000",
		Region:   "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewVideoArchive() error = %v", err)
	}
	if got := archive.location("videos/s/clip.mp4"); got != "s3://uploads/videos/s/clip.mp4" {
		t.Fatalf("unexpected location %q", got)
	}

	archive.baseURL = "https://cdn.example.com"
	if got := archive.location("videos/s/clip.mp4"); got != "https://cdn.example.com/videos/s/clip.mp4" {
		t.Fatalf("unexpected public location %q", got)
	}
}
