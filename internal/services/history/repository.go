package history

import (
	"context"
	"fmt"

	"github.com/phambaophuc/resizo/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultListLimit = 100

type Repository interface {
	Create(ctx context.Context, entry *models.HistoryEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository wraps an open gorm connection.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Open connects to Postgres and migrates the resize_history table.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect db: %w", err)
	}
	if err := db.AutoMigrate(&models.HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return db, nil
}

func (r *gormRepository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	var entries []models.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// Summarize totals the entries the way the dashboard shows them.
func Summarize(entries []models.HistoryEntry) models.HistorySummary {
	summary := models.HistorySummary{TotalResized: len(entries)}
	for _, e := range entries {
		if saved := e.OriginalSizeBytes - e.ResizedSizeBytes; saved > 0 {
			summary.TotalBytesSaved += saved
		}
	}
	return summary
}
