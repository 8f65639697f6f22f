package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/resizo/internal/models"
)

// Recorder persists one history entry. Callers treat failures as non-fatal.
type Recorder interface {
	Record(ctx context.Context, entry models.HistoryEntry) error
}

// DirectRecorder writes straight to the repository.
type DirectRecorder struct {
	repo Repository
}

func NewDirectRecorder(repo Repository) *DirectRecorder {
	return &DirectRecorder{repo: repo}
}

func (r *DirectRecorder) Record(ctx context.Context, entry models.HistoryEntry) error {
	prepare(&entry)
	return r.repo.Create(ctx, &entry)
}

// NopRecorder drops entries; used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.HistoryEntry) error { return nil }

// NewEntry builds an entry from a finished transform.
func NewEntry(userID string, file models.UploadedFile, result *models.TransformResult) models.HistoryEntry {
	return models.HistoryEntry{
		UserID:            userID,
		OriginalFilename:  file.Filename,
		OriginalWidth:     result.SourceWidth,
		OriginalHeight:    result.SourceHeight,
		ResizedWidth:      result.Width,
		ResizedHeight:     result.Height,
		OutputFormat:      result.Format.Extension(),
		OriginalSizeBytes: file.Size,
		ResizedSizeBytes:  int64(len(result.Data)),
	}
}

func prepare(entry *models.HistoryEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}
