package repositories

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// UploadRepository persists spreadsheet upload records.
type UploadRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewUploadRepository creates a new repository instance.
func NewUploadRepository(db *gorm.DB, logger *slog.Logger) *UploadRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &UploadRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a new upload. The unique index on file_hash turns a resubmitted
// spreadsheet into a duplicate-upload conflict.
func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	err := r.db.WithContext(ctx).Create(upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.DuplicateUpload(upload.FileHash)
		}
		r.logger.Error("failed to create upload record",
			slog.String("filename", upload.Filename),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	return nil
}

// FindByHash retrieves an upload by its content hash, or nil when the hash
// has not been seen.
func (r *UploadRepository) FindByHash(ctx context.Context, hash string) (*domain.Upload, error) {
	var upload domain.Upload

	err := r.db.WithContext(ctx).
		First(&upload, "file_hash = ?", hash).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError(err)
	}

	return &upload, nil
}

// MarkProcessed finalizes an upload record after its batch decision.
func (r *UploadRepository) MarkProcessed(ctx context.Context, id uuid.UUID, status string, totalRows int) error {
	if !domain.IsValidUploadStatus(status) {
		return apperrors.BadRequest("invalid upload status: " + status)
	}

	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&domain.Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"total_rows":   totalRows,
			"processed_at": &now,
		}).
		Error

	if err != nil {
		r.logger.Error("failed to mark upload processed",
			slog.String("upload_id", id.String()),
			slog.String("status", status),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	return nil
}

// ListByUser returns a user's uploads, newest first.
func (r *UploadRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Upload, error) {
	var uploads []domain.Upload

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&uploads).
		Error

	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return uploads, nil
}
