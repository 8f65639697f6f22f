package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phambaophuc/resizo/pkg/utils"
	storage_go "github.com/supabase-community/storage-go"
)

// SaveProcessed keeps a processed output under the user's prefix and returns
// the object key.
func (s *StorageService) SaveProcessed(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	key := utils.GenerateStorageKey(userID, filename)
	if err := s.Upload(ctx, data, key, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Upload uploads data to Supabase Storage at key.
func (s *StorageService) Upload(ctx context.Context, data []byte, key, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to supabase: %w", err)
	}
	return nil
}
