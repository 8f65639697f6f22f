package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/config"
	"github.com/phambaophuc/resizo/internal/http/middleware"
	"github.com/phambaophuc/resizo/internal/models"
	"github.com/phambaophuc/resizo/internal/services/history"
	"github.com/phambaophuc/resizo/internal/services/processor"
	"github.com/phambaophuc/resizo/internal/services/storage"
	"github.com/phambaophuc/resizo/pkg/utils"
	"go.uber.org/zap"
)

const (
	fileParamKey       = "file"
	bulkFileParamKey   = "file_%d"
	bulkConfigParamKey = "config_%d"

	msgNoFile        = "No file provided in the request."
	msgNoFiles       = "No files provided for processing"
	msgProcessFailed = "An internal server error occurred while processing the image."

	backgroundTimeout = 30 * time.Second
)

type Transformer interface {
	Transform(ctx context.Context, data []byte, cfg models.TransformConfig) (*models.TransformResult, error)
	TransformBulk(ctx context.Context, items []models.BulkItem, workers int) ([]*models.TransformResult, error)
}

type FileValidator interface {
	Validate(file models.UploadedFile) error
}

type ResultCache interface {
	Enabled() bool
	Get(ctx context.Context, key string) (*models.TransformResult, error)
	Set(ctx context.Context, key string, result *models.TransformResult) error
}

type ObjectStorage interface {
	SaveProcessed(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error)
	UploadMultiple(ctx context.Context, objects []storage.Object) ([]string, error)
}

// HealthChecker reports "healthy" or "unhealthy: <reason>".
type HealthChecker func(ctx context.Context) string

// Dependencies are the collaborators of ImageHandler. Processor and
// Validator are required; the rest may be nil.
type Dependencies struct {
	Processor Transformer
	Validator FileValidator
	Cache     ResultCache
	Storage   ObjectStorage
	Recorder  history.Recorder
	History   history.Repository
	Health    map[string]HealthChecker
}

type ImageHandler struct {
	processor  Transformer
	validator  FileValidator
	cache      ResultCache
	storage    ObjectStorage
	recorder   history.Recorder
	history    history.Repository
	health     map[string]HealthChecker
	bindings   *validator.Validate
	logger     *zap.Logger
	config     *config.Config
	background func(func())
}

func NewImageHandler(deps Dependencies, logger *zap.Logger, config *config.Config) *ImageHandler {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = history.NopRecorder{}
	}

	return &ImageHandler{
		processor:  deps.Processor,
		validator:  deps.Validator,
		cache:      deps.Cache,
		storage:    deps.Storage,
		recorder:   recorder,
		history:    deps.History,
		health:     deps.Health,
		bindings:   validator.New(),
		logger:     logger,
		config:     config,
		background: func(fn func()) { go fn() },
	}
}

// === MAIN API ENDPOINTS ===

func (h *ImageHandler) ResizeImage(c *gin.Context) {
	file, err := h.readUploadedFile(c, fileParamKey)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.respondError(c, apperrors.ClientInput(msgNoFile))
			return
		}
		h.respondError(c, err)
		return
	}

	cfg, err := h.parseResizeParams(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.validator.Validate(file); err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.transformCached(c.Request.Context(), file, cfg)
	if err != nil {
		h.logger.Error("Processing failed",
			zap.String("filename", file.Filename),
			zap.String("request_id", middleware.RequestID(c)),
			zap.Error(err))
		h.respondError(c, err)
		return
	}

	filename := utils.ProcessedFilename(file.Filename, result.Format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Length", strconv.Itoa(len(result.Data)))
	c.Data(http.StatusOK, result.Format.ContentType(), result.Data)

	if userID := middleware.UserID(c); userID != "" {
		h.background(func() { h.keepSingle(userID, filename, file, result) })
	}
}

func (h *ImageHandler) BulkResize(c *gin.Context) {
	items, err := h.parseBulkItems(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	results, err := h.processor.TransformBulk(c.Request.Context(), items, h.config.Processing.BulkWorkers)
	if err != nil {
		h.respondBulkError(c, err)
		return
	}

	archive, entries, err := buildArchive(items, results)
	if err != nil {
		h.logger.Error("Failed to build archive", zap.Error(err))
		h.respondError(c, apperrors.Processing(msgProcessFailed, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, utils.BulkArchiveName))
	c.Header("Content-Length", strconv.Itoa(len(archive)))
	c.Data(http.StatusOK, "application/zip", archive)

	if userID := middleware.UserID(c); userID != "" {
		h.background(func() { h.keepBulk(userID, items, results, entries) })
	}
}

// History lists the caller's recent resizes with totals.
func (h *ImageHandler) History(c *gin.Context) {
	if h.history == nil {
		h.respondMessage(c, http.StatusServiceUnavailable, "History is not available.")
		return
	}

	limit := history.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(c, apperrors.ClientInput("Invalid limit parameter provided."))
			return
		}
		limit = parsed
	}

	entries, err := h.history.ListByUser(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		h.respondMessage(c, http.StatusInternalServerError, "Failed to load history.")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data: models.HistoryResponse{
			Summary: history.Summarize(entries),
			Entries: entries,
		},
	})
}

// HealthCheck
func (h *ImageHandler) HealthCheck(c *gin.Context) {
	services := h.checkServices(c.Request.Context())
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == models.StatusHealthy,
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

func (h *ImageHandler) respondBulkError(c *gin.Context, err error) {
	var itemErr *processor.ItemError
	if !errors.As(err, &itemErr) {
		h.logger.Error("Bulk processing failed", zap.Error(err))
		h.respondError(c, apperrors.Processing(msgProcessFailed, err))
		return
	}

	if apperrors.KindOf(err) == apperrors.KindClientInput {
		h.respondError(c, apperrors.ClientInput(fmt.Sprintf("File at index %d is invalid: %s", itemErr.Index, itemErr.Err.Error())))
		return
	}

	h.logger.Error("Bulk processing failed",
		zap.Int("index", itemErr.Index),
		zap.String("request_id", middleware.RequestID(c)),
		zap.Error(itemErr.Err))
	h.respondMessage(c, http.StatusInternalServerError, fmt.Sprintf("Failed to process file at index %d.", itemErr.Index))
}
