package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
	"github.com/phambaophuc/resizo/internal/services/cache"
	"github.com/phambaophuc/resizo/internal/services/history"
	"github.com/phambaophuc/resizo/internal/services/storage"
	"github.com/phambaophuc/resizo/pkg/utils"
	"go.uber.org/zap"
)

// === REQUEST PARSING ===

func (h *ImageHandler) parseResizeParams(c *gin.Context) (models.TransformConfig, error) {
	width, err := parseOptionalInt(c.PostForm("width"), "width")
	if err != nil {
		return models.TransformConfig{}, err
	}

	height, err := parseOptionalInt(c.PostForm("height"), "height")
	if err != nil {
		return models.TransformConfig{}, err
	}

	scale, err := parseOptionalFloat(c.PostForm("scale"), "scale")
	if err != nil {
		return models.TransformConfig{}, err
	}

	formatValue := c.PostForm("format")
	if strings.TrimSpace(formatValue) == "" {
		formatValue = string(models.FormatJPEG)
	}
	format, err := models.ParseFormat(formatValue)
	if err != nil {
		return models.TransformConfig{}, apperrors.ClientInput("Invalid format parameter provided. Use jpeg, png, webp or original.")
	}

	return models.TransformConfig{
		Width:  width,
		Height: height,
		Scale:  scale,
		Format: format,
	}, nil
}

// parseBulkItems scans file_0/config_0, file_1/config_1, ... until the next
// file is missing. Each file is validated before its config is parsed, so the
// first failure reported is always the lowest index.
func (h *ImageHandler) parseBulkItems(c *gin.Context) ([]models.BulkItem, error) {
	var items []models.BulkItem

	for i := 0; ; i++ {
		file, err := h.readUploadedFile(c, fmt.Sprintf(bulkFileParamKey, i))
		if errors.Is(err, http.ErrMissingFile) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := h.validator.Validate(file); err != nil {
			return nil, apperrors.ClientInput(fmt.Sprintf("File at index %d is invalid: %s", i, err.Error()))
		}

		cfg, err := h.parseBulkConfig(c.PostForm(fmt.Sprintf(bulkConfigParamKey, i)), i)
		if err != nil {
			return nil, err
		}

		items = append(items, models.BulkItem{Index: i, File: file, Config: cfg})
	}

	if len(items) == 0 {
		return nil, apperrors.ClientInput(msgNoFiles)
	}
	return items, nil
}

// parseBulkConfig returns nil when the config is absent.
func (h *ImageHandler) parseBulkConfig(raw string, index int) (*models.TransformConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var bulkCfg models.BulkConfig
	if err := json.Unmarshal([]byte(raw), &bulkCfg); err != nil {
		return nil, apperrors.ClientInput(fmt.Sprintf("Invalid config for file at index %d.", index))
	}

	bulkCfg.Format = strings.ToLower(strings.TrimSpace(bulkCfg.Format))
	if err := h.bindings.Struct(bulkCfg); err != nil {
		return nil, apperrors.ClientInput(fmt.Sprintf("Invalid config for file at index %d: unsupported format %q.", index, bulkCfg.Format))
	}

	cfg, err := bulkCfg.ToTransformConfig()
	if err != nil {
		return nil, apperrors.ClientInput(fmt.Sprintf("Invalid config for file at index %d: %v", index, err))
	}
	return &cfg, nil
}

func parseOptionalInt(value, fieldName string) (*int, error) {
	num, err := parseOptionalFloat(value, fieldName)
	if err != nil || num == nil {
		return nil, err
	}
	if math.Abs(*num) > math.MaxInt32 {
		return nil, apperrors.ClientInput(fmt.Sprintf("Invalid %s parameter provided.", fieldName))
	}

	v := int(math.Trunc(*num))
	return &v, nil
}

func parseOptionalFloat(value, fieldName string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	num, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return nil, apperrors.ClientInput(fmt.Sprintf("Invalid %s parameter provided.", fieldName))
	}
	return &num, nil
}

// === FILE OPERATIONS ===

// readUploadedFile returns http.ErrMissingFile unchanged when the field is
// absent. Oversized parts are not read into memory; the validator rejects
// them on size alone.
func (h *ImageHandler) readUploadedFile(c *gin.Context, paramKey string) (models.UploadedFile, error) {
	header, err := c.FormFile(paramKey)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return models.UploadedFile{}, err
		}
		return models.UploadedFile{}, apperrors.ClientInput("Failed to parse form data.")
	}

	uploaded := models.UploadedFile{
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
		Size:        header.Size,
	}
	if header.Size > h.config.Processing.MaxFileSize {
		return uploaded, nil
	}

	file, err := header.Open()
	if err != nil {
		return models.UploadedFile{}, apperrors.Processing("failed to open uploaded file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.UploadedFile{}, apperrors.Processing("failed to read uploaded file", err)
	}
	uploaded.Data = data
	return uploaded, nil
}

// === RESPONSE HANDLING ===

// respondError renders err with its mapped status. Processing failures carry
// only the generic message.
func (h *ImageHandler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := msgProcessFailed

	var appErr *apperrors.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		message = appErr.Error()
	}

	h.respondMessage(c, status, message)
}

func (h *ImageHandler) respondMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// buildArchive writes results into a DEFLATE zip in item order and returns
// the entry names used.
func buildArchive(items []models.BulkItem, results []*models.TransformResult) ([]byte, []string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := make([]string, len(results))
	used := make(map[string]bool, len(results))
	modified := time.Now()

	for i, result := range results {
		name := utils.ArchiveEntryName(items[i].File.Filename, result.Width, result.Height, result.Format.Extension())
		for used[name] {
			name = utils.WithIndexSuffix(name, items[i].Index)
		}
		used[name] = true
		names[i] = name

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(result.Data); err != nil {
			return nil, nil, fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), names, nil
}

// === PROCESSING LOGIC ===

func (h *ImageHandler) transformCached(ctx context.Context, file models.UploadedFile, cfg models.TransformConfig) (*models.TransformResult, error) {
	if h.cache == nil || !h.cache.Enabled() {
		return h.processor.Transform(ctx, file.Data, cfg)
	}

	cacheKey := cache.GenerateKey(file.Data, cfg)
	cached, err := h.cache.Get(ctx, cacheKey)
	if err != nil {
		h.logger.Warn("Failed to read result cache", zap.String("cache_key", cacheKey), zap.Error(err))
	} else if cached != nil {
		h.logger.Debug("Cache hit", zap.String("cache_key", cacheKey))
		return cached, nil
	}

	result, err := h.processor.Transform(ctx, file.Data, cfg)
	if err != nil {
		return nil, err
	}

	if err := h.cache.Set(ctx, cacheKey, result); err != nil {
		h.logger.Warn("Failed to cache result", zap.String("cache_key", cacheKey), zap.Error(err))
	}
	return result, nil
}

// === STORAGE AND HISTORY ===

func (h *ImageHandler) keepSingle(userID, filename string, file models.UploadedFile, result *models.TransformResult) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	entry := history.NewEntry(userID, file, result)
	if h.keepOutputs() {
		path, err := h.storage.SaveProcessed(ctx, userID, filename, result.Data, result.Format.ContentType())
		if err != nil {
			h.logger.Warn("Failed to upload to Storage", zap.String("user_id", userID), zap.Error(err))
		} else {
			entry.StoredPath = path
		}
	}

	h.record(ctx, entry)
}

func (h *ImageHandler) keepBulk(userID string, items []models.BulkItem, results []*models.TransformResult, names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	paths := make([]string, len(results))
	if h.keepOutputs() {
		objects := make([]storage.Object, len(results))
		for i, result := range results {
			paths[i] = utils.GenerateStorageKey(userID, names[i])
			objects[i] = storage.Object{Key: paths[i], Data: result.Data, ContentType: result.Format.ContentType()}
		}

		stored, err := h.storage.UploadMultiple(ctx, objects)
		if err != nil {
			h.logger.Warn("Failed to upload bulk outputs", zap.String("user_id", userID), zap.Error(err))
		}
		kept := make(map[string]bool, len(stored))
		for _, key := range stored {
			kept[key] = true
		}
		for i := range paths {
			if !kept[paths[i]] {
				paths[i] = ""
			}
		}
	}

	for i, result := range results {
		entry := history.NewEntry(userID, items[i].File, result)
		entry.StoredPath = paths[i]
		h.record(ctx, entry)
	}
}

func (h *ImageHandler) keepOutputs() bool {
	return h.storage != nil && h.config.Supabase.KeepOutputs
}

func (h *ImageHandler) record(ctx context.Context, entry models.HistoryEntry) {
	if err := h.recorder.Record(ctx, entry); err != nil {
		h.logger.Warn("Failed to record history",
			zap.String("user_id", entry.UserID),
			zap.String("filename", entry.OriginalFilename),
			zap.Error(err))
	}
}

// === UTILITY METHODS ===

func (h *ImageHandler) checkServices(ctx context.Context) map[string]string {
	services := make(map[string]string, len(h.health))
	for name, check := range h.health {
		if check == nil {
			services[name] = models.StatusNotConfigured
			continue
		}
		services[name] = check(ctx)
	}
	return services
}

func (h *ImageHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != models.StatusHealthy && status != models.StatusNotConfigured {
			return "unhealthy"
		}
	}
	return models.StatusHealthy
}
