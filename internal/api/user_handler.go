package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// UserStore is the persistence surface the account handlers need.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	Activate(ctx context.Context, username string) (*domain.User, error)
}

// UserHandler serves account registration and admin activation.
type UserHandler struct {
	users  UserStore
	logger *slog.Logger
}

// NewUserHandler creates the account endpoints handler.
func NewUserHandler(users UserStore, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

type registerPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PIName    string `json:"pi_name"`
	PIEmail   string `json:"pi_email"`
}

// Register handles POST /register. Accounts start inactive and cannot
// authenticate until an administrator activates them. The API token is
// generated here and returned exactly once.
func (h *UserHandler) Register(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.BadRequest("request body must be valid JSON"))
		return
	}

	required := []struct{ name, value string }{
		{"username", payload.Username},
		{"email", payload.Email},
		{"password", payload.Password},
		{"pi_name", payload.PIName},
		{"pi_email", payload.PIEmail},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		respondError(c, apperrors.BadRequest(
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))))
		return
	}

	user := &domain.User{
		Username:  strings.TrimSpace(payload.Username),
		Email:     strings.TrimSpace(payload.Email),
		FirstName: strings.TrimSpace(payload.FirstName),
		LastName:  strings.TrimSpace(payload.LastName),
		PIName:    strings.TrimSpace(payload.PIName),
		PIEmail:   strings.TrimSpace(payload.PIEmail),
		APIToken:  uuid.NewString(),
	}
	if err := user.SetPassword(payload.Password); err != nil {
		respondError(c, apperrors.InternalWrap(err, "failed to store credentials"))
		return
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("registered user",
		slog.String("username", user.Username),
		slog.String("pi_name", user.PIName))

	c.JSON(http.StatusCreated, gin.H{
		"user":      user,
		"api_token": user.APIToken,
	})
}

// Activate handles PATCH /api/admin/users/:username/activate.
func (h *UserHandler) Activate(c *gin.Context) {
	user, err := h.users.Activate(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("user activated",
		slog.String("username", user.Username),
		slog.String("activated_by", GetRequester(c).Username))

	c.JSON(http.StatusOK, gin.H{"user": user})
}
