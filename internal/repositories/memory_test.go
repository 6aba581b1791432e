package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unipublish/backend/internal/models"
)

func TestInMemoryPublicationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryPublicationRepository()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	older := models.Publication{ID: "pub-1", SessionID: "s", Platform: "bilibili", Title: "first", Tags: []string{"a"}, PublishedAt: base}
	newer := models.Publication{ID: "pub-2", SessionID: "s", Platform: "douyin", Title: "second", PublishedAt: base.Add(time.Minute)}

	for _, p := range []models.Publication{older, newer} {
		if err := repo.RecordPublication(ctx, p); err != nil {
			t.Fatalf("record %s: %v", p.ID, err)
		}
	}
	if err := repo.RecordPublication(ctx, older); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}

	list, err := repo.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "pub-2" || list[1].ID != "pub-1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].Tags == nil {
		t.Fatal("expected empty tags to be non-nil")
	}

	list[1].Tags[0] = "mutated"
	fetched, err := repo.FindByID(ctx, "pub-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if fetched.Tags[0] != "a" {
		t.Fatal("expected stored publication to be isolated from callers")
	}

	limited, _ := repo.ListRecent(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: DefaultListLimit, 0: DefaultListLimit, 10: 10, MaxListLimit + 1: MaxListLimit}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d) = %d want %d", in, got, want)
		}
	}
}
