package storage

import (
	"context"
	"fmt"

	"github.com/phambaophuc/resizo/internal/models"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

// HealthCheck lists the bucket root to confirm Supabase is reachable.
func (s *StorageService) HealthCheck(ctx context.Context) string {
	if err := ctx.Err(); err != nil {
		return "unhealthy: " + err.Error()
	}

	_, err := s.client.ListFiles(s.bucket, "", storage_go.FileSearchOptions{Limit: 1})
	if err != nil {
		s.logger.Warn("Supabase health check failed", zap.Error(err))
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return models.StatusHealthy
}
