package api

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	"github.com/CacconeLabYale/TsetseCheckout/internal/core/services/checkout"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/parsers"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/storage"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

const uploadFormField = "spreadsheet"

// dedupTTL bounds how long a spreadsheet hash is parked in redis. The
// database unique index on file_hash remains the durable guard.
const dedupTTL = 24 * time.Hour

// UploadStore is the persistence surface the upload handler needs.
type UploadStore interface {
	Create(ctx context.Context, upload *domain.Upload) error
	FindByHash(ctx context.Context, hash string) (*domain.Upload, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, status string, totalRows int) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Upload, error)
}

// HashCache is the fast-path deduplication check.
type HashCache interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

// BatchProcessor decides one parsed spreadsheet.
type BatchProcessor interface {
	Process(ctx context.Context, requester *domain.User, sheet *checkout.Sheet, uploadID uuid.UUID) (*checkout.BatchResult, error)
}

// UploadHandler serves spreadsheet uploads: store, deduplicate, parse, and
// hand the sheet to the batch processor.
type UploadHandler struct {
	storage   *storage.LocalStorage
	parsers   *parsers.ParserFactory
	uploads   UploadStore
	dedup     HashCache
	processor BatchProcessor

	maxFileSizeMB int64
	logger        *slog.Logger
}

// NewUploadHandler creates the upload endpoints handler.
func NewUploadHandler(
	store *storage.LocalStorage,
	factory *parsers.ParserFactory,
	uploads UploadStore,
	dedup HashCache,
	processor BatchProcessor,
	maxFileSizeMB int64,
	logger *slog.Logger,
) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UploadHandler{
		storage:       store,
		parsers:       factory,
		uploads:       uploads,
		dedup:         dedup,
		processor:     processor,
		maxFileSizeMB: maxFileSizeMB,
		logger:        logger,
	}
}

// Upload handles POST /api/uploads. The whole spreadsheet is decided as one
// unit; the response carries the per-row outcome either way.
func (h *UploadHandler) Upload(c *gin.Context) {
	requester := GetRequester(c)
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		respondError(c, apperrors.InvalidFile("multipart field 'spreadsheet' is required"))
		return
	}

	ext := filepath.Ext(fileHeader.Filename)
	if !h.parsers.IsSupported(ext) {
		respondError(c, apperrors.UnsupportedFormat(ext))
		return
	}

	if h.maxFileSizeMB > 0 && fileHeader.Size > h.maxFileSizeMB*1024*1024 {
		respondError(c, apperrors.FileTooLarge(h.maxFileSizeMB))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperrors.InvalidFile("failed to read uploaded file"))
		return
	}
	defer file.Close()

	uploadID := uuid.New()
	metadata, err := h.storage.SaveUpload(ctx, uploadID.String(), fileHeader.Filename, file)
	if err != nil {
		respondError(c, apperrors.InternalWrap(err, "failed to store uploaded file"))
		return
	}

	if dup, err := h.isDuplicate(ctx, metadata.Hash); err != nil {
		respondError(c, err)
		return
	} else if dup {
		if err := h.storage.DeleteUpload(ctx, uploadID.String()); err != nil {
			h.logger.Warn("failed to remove duplicate upload file",
				slog.String("upload_id", uploadID.String()),
				slog.Any("error", err))
		}
		respondError(c, apperrors.DuplicateUpload(metadata.Hash))
		return
	}

	upload := &domain.Upload{
		ID:         uploadID,
		UserID:     requester.ID,
		Filename:   fileHeader.Filename,
		StoredPath: metadata.StoredPath,
		FileHash:   metadata.Hash,
	}
	if err := h.uploads.Create(ctx, upload); err != nil {
		respondError(c, err)
		return
	}

	parsed, err := h.parsers.ParseFile(ctx, metadata.StoredPath)
	if err != nil {
		h.finalize(ctx, uploadID, "failed", 0)
		respondError(c, apperrors.FileParseError(err))
		return
	}

	sheet := &checkout.Sheet{
		Columns: parsed.Columns,
		Rows:    make([]checkout.RowValues, 0, len(parsed.Records)),
	}
	for _, record := range parsed.Records {
		sheet.Rows = append(sheet.Rows, checkout.RowValues(record))
	}

	result, err := h.processor.Process(ctx, requester, sheet, uploadID)
	if err != nil {
		h.finalize(ctx, uploadID, "failed", 0)
		respondError(c, err)
		return
	}

	status := "failed"
	if result.Passed {
		status = "completed"
	}
	h.finalize(ctx, uploadID, status, len(result.Rows))

	c.JSON(http.StatusOK, gin.H{
		"upload_id": uploadID,
		"passed":    result.Passed,
		"rows":      checkout.Summarize(result),
	})
}

// List handles GET /api/uploads, returning the requester's own uploads.
func (h *UploadHandler) List(c *gin.Context) {
	requester := GetRequester(c)

	uploads, err := h.uploads.ListByUser(c.Request.Context(), requester.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(uploads),
		"uploads": uploads,
	})
}

// isDuplicate checks redis first, then the uploads table. A redis outage
// degrades to the database check alone.
func (h *UploadHandler) isDuplicate(ctx context.Context, hash string) (bool, error) {
	fresh, err := h.dedup.SetNX(ctx, "upload:sha256:"+hash, time.Now().UTC().Format(time.RFC3339), dedupTTL)
	if err != nil {
		h.logger.Warn("upload dedup cache unavailable", slog.Any("error", err))
	} else if !fresh {
		return true, nil
	}

	existing, err := h.uploads.FindByHash(ctx, hash)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (h *UploadHandler) finalize(ctx context.Context, uploadID uuid.UUID, status string, totalRows int) {
	if err := h.uploads.MarkProcessed(ctx, uploadID, status, totalRows); err != nil {
		h.logger.Error("failed to finalize upload record",
			slog.String("upload_id", uploadID.String()),
			slog.String("status", status),
			slog.Any("error", err))
	}
}
