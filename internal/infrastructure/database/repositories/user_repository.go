package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// UserRepository looks up and persists registered requesters.
type UserRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *gorm.DB, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// UsernameExists reports whether an active user owns the username.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ? AND active = ?", username, true).
		Count(&count).
		Error

	if err != nil {
		r.logger.Error("failed to check username",
			slog.String("username", username),
			slog.Any("error", err))
		return false, fmt.Errorf("database query failed: %w", err)
	}

	return count > 0, nil
}

// FindByUsername retrieves a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User

	err := r.db.WithContext(ctx).
		First(&user, "username = ?", username).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.RecordNotFound("user")
		}
		return nil, apperrors.DatabaseError(err)
	}

	return &user, nil
}

// FindByAPIToken retrieves the active user holding the given API token.
func (r *UserRepository) FindByAPIToken(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User

	err := r.db.WithContext(ctx).
		First(&user, "api_token = ? AND active = ?", token, true).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("invalid API token")
		}
		return nil, apperrors.DatabaseError(err)
	}

	return &user, nil
}

// Activate marks a registered account as allowed to authenticate and submit
// requests. New accounts start inactive until an administrator flips them.
func (r *UserRepository) Activate(ctx context.Context, username string) (*domain.User, error) {
	user, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.Active {
		return nil, apperrors.Conflict(fmt.Sprintf("user %s is already active", username))
	}

	user.Active = true
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		r.logger.Error("failed to activate user",
			slog.String("username", username),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	r.logger.Info("activated user", slog.String("username", username))

	return user, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict(fmt.Sprintf("username or email already registered: %s", user.Username))
		}
		r.logger.Error("failed to create user",
			slog.String("username", user.Username),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	r.logger.Info("created user",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID.String()))

	return nil
}
