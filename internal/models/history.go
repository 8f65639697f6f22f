package models

import "time"

// HistoryEntry is one row of the resize_history table.
type HistoryEntry struct {
	ID                string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID            string    `json:"user_id" gorm:"index;not null"`
	OriginalFilename  string    `json:"original_filename"`
	OriginalWidth     int       `json:"original_width"`
	OriginalHeight    int       `json:"original_height"`
	ResizedWidth      int       `json:"resized_width"`
	ResizedHeight     int       `json:"resized_height"`
	OutputFormat      string    `json:"output_format"`
	OriginalSizeBytes int64     `json:"original_size_bytes"`
	ResizedSizeBytes  int64     `json:"resized_size_bytes"`
	StoredPath        string    `json:"stored_path,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func (HistoryEntry) TableName() string {
	return "resize_history"
}

type HistorySummary struct {
	TotalResized    int   `json:"total_resized"`
	TotalBytesSaved int64 `json:"total_bytes_saved"`
}

type HistoryResponse struct {
	Summary HistorySummary `json:"summary"`
	Entries []HistoryEntry `json:"entries"`
}
