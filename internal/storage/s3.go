package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/unipublish/backend/internal/config"
)

// ErrBucketRequired indicates an object store configuration without a bucket.
var ErrBucketRequired = errors.New("s3 storage: bucket is required")

// VideoArchive keeps a copy of uploaded source videos in an S3-compatible
// bucket. Archived objects are private; the returned location is the public
// URL only when a base URL is configured.
type VideoArchive struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewVideoArchive configures an uploader targeting the provided object store.
func NewVideoArchive(ctx context.Context, cfg config.ObjectStoreConfig) (*VideoArchive, error) {
	if !cfg.Enabled() {
		return nil, ErrBucketRequired
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 8 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &VideoArchive{
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save uploads a session's video and returns its location.
func (a *VideoArchive) Save(ctx context.Context, sessionID, filename, mimeType string, data []byte) (string, error) {
	key, err := VideoKey(sessionID, filename)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := a.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	return a.location(key), nil
}

func (a *VideoArchive) location(key string) string {
	if a.baseURL == "" {
		return fmt.Sprintf("s3://%s/%s", a.bucket, key)
	}
	return fmt.Sprintf("%s/%s", a.baseURL, key)
}

// VideoKey builds the object key for a session upload. Directory components
// in the client-supplied filename are dropped.
func VideoKey(sessionID, filename string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.ContainsAny(sessionID, "/\\") {
		return "", fmt.Errorf("s3 storage: invalid session id %q", sessionID)
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		name = "video"
	}
	return path.Join("videos", sessionID, name), nil
}
