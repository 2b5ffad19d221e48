package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore keeps objects in one Supabase Storage bucket.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
}

// NewSupabaseStore takes the project URL (https://<ref>.supabase.co) and a
// service key.
func NewSupabaseStore(projectURL, key, bucket string) *SupabaseStore {
	storageURL := strings.TrimRight(projectURL, "/") + "/storage/v1"
	return &SupabaseStore{
		client: storage_go.NewClient(storageURL, key, map[string]string{"apikey": key}),
		bucket: bucket,
	}
}

func (s *SupabaseStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	const op = "blobstore.SupabaseStore.Put"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%s: %s: %w", op, key, ErrObjectExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SupabaseStore) PublicURL(key string) string {
	return s.client.GetPublicUrl(s.bucket, key).SignedURL
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	const op = "blobstore.SupabaseStore.Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Storage reports a taken key as "Duplicate" / "The resource already exists",
// with status 409 or, on older versions, 400.
func isDuplicate(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "Duplicate")
}
