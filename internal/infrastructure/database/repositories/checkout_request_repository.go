package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// CheckoutRequestRepository persists checkout requests using GORM.
type CheckoutRequestRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCheckoutRequestRepository creates a new repository instance.
func NewCheckoutRequestRepository(db *gorm.DB, logger *slog.Logger) *CheckoutRequestRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &CheckoutRequestRepository{
		db:     db,
		logger: logger,
	}
}

// TubeAvailable reports whether the tube tuple is free to claim. A tube that
// has been returned to storage can be requested again, so returned rows do
// not count against availability.
func (r *CheckoutRequestRepository) TubeAvailable(ctx context.Context, villageSymbol string, month, year, tubeNumber int) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.CheckoutRequest{}).
		Where("village_symbol = ? AND collection_month = ? AND collection_year = ? AND tube_number = ? AND sample_status <> ?",
			villageSymbol, month, year, tubeNumber, domain.SampleStatusReturned).
		Count(&count).
		Error

	if err != nil {
		r.logger.Error("failed to check tube availability",
			slog.String("village_symbol", villageSymbol),
			slog.Int("tube_number", tubeNumber),
			slog.Any("error", err))
		return false, fmt.Errorf("database query failed: %w", err)
	}

	return count == 0, nil
}

// InsertBatch writes every request in one transaction. The unique tube-claim
// index arbitrates races between concurrent batches; losing the race comes
// back as a conflict error and nothing from the batch is kept.
func (r *CheckoutRequestRepository) InsertBatch(ctx context.Context, requests []*domain.CheckoutRequest) error {
	if len(requests) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&requests).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.logger.Warn("batch lost a tube claim race",
				slog.Int("request_count", len(requests)))
			return apperrors.Conflict("one or more requested tubes were claimed by another submission")
		}
		r.logger.Error("failed to insert request batch",
			slog.Int("request_count", len(requests)),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	r.logger.Info("inserted request batch",
		slog.Int("request_count", len(requests)))

	return nil
}

// FindByID retrieves a single checkout request.
func (r *CheckoutRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CheckoutRequest, error) {
	var req domain.CheckoutRequest

	err := r.db.WithContext(ctx).
		First(&req, "id = ?", id).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("checkout request %s not found", id))
		}
		return nil, apperrors.DatabaseError(err)
	}

	return &req, nil
}

// ListByUser returns a user's checkout requests, newest first.
func (r *CheckoutRequestRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CheckoutRequest, error) {
	var requests []domain.CheckoutRequest

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date_of_request DESC").
		Find(&requests).
		Error

	if err != nil {
		r.logger.Error("failed to list requests",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	return requests, nil
}

// Approve stamps the approval time on a pending request.
func (r *CheckoutRequestRepository) Approve(ctx context.Context, id uuid.UUID, at time.Time) (*domain.CheckoutRequest, error) {
	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsApproved() {
		return nil, apperrors.Conflict(fmt.Sprintf("checkout request %s is already approved", id))
	}

	req.Approve(at)
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		r.logger.Error("failed to approve request",
			slog.String("request_id", id.String()),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	r.logger.Info("approved checkout request",
		slog.String("request_id", id.String()))

	return req, nil
}

// UpdateSampleStatus moves a request through the sample lifecycle.
func (r *CheckoutRequestRepository) UpdateSampleStatus(ctx context.Context, id uuid.UUID, status int) (*domain.CheckoutRequest, error) {
	if !domain.IsValidSampleStatus(status) {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid sample status code %d", status))
	}

	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.SampleStatus = status
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return req, nil
}
