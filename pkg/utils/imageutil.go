package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProcessedPrefix = "resizo-processed-"
	ArchivePrefix   = "resizo-"
	BulkArchiveName = "resizo-bulk.zip"
	defaultBaseName = "image"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SanitizeFilename drops every character outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "")
}

// BaseName sanitizes name and removes its final extension.
func BaseName(name string) string {
	safe := SanitizeFilename(name)
	if idx := strings.LastIndex(safe, "."); idx != -1 {
		safe = safe[:idx]
	}
	if safe == "" {
		return defaultBaseName
	}
	return safe
}

// ProcessedFilename is the download name of a single resize.
func ProcessedFilename(original, ext string) string {
	return fmt.Sprintf("%s%s.%s", ProcessedPrefix, BaseName(original), ext)
}

// ArchiveEntryName is the name of one output inside the bulk archive.
func ArchiveEntryName(original string, width, height int, ext string) string {
	return fmt.Sprintf("%s%s-%dx%d.%s", ArchivePrefix, BaseName(original), width, height, ext)
}

// WithIndexSuffix appends -<index> before the extension of name.
func WithIndexSuffix(name string, index int) string {
	if idx := strings.LastIndex(name, "."); idx != -1 {
		return fmt.Sprintf("%s-%d%s", name[:idx], index, name[idx:])
	}
	return fmt.Sprintf("%s-%d", name, index)
}

// GenerateStorageKey builds a unique object key under the user's prefix.
func GenerateStorageKey(userID, filename string) string {
	timestamp := time.Now().Unix()
	id := uuid.New().String()[:8]

	return fmt.Sprintf("processed/%s/%d_%s_%s", SanitizeFilename(userID), timestamp, id, SanitizeFilename(filename))
}
