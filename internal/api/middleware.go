package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
)

const ctxRequesterKey = "requester"

// TokenAuthenticator resolves an API token to its owning user.
type TokenAuthenticator interface {
	FindByAPIToken(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware authenticates requests by the X-API-Key header.
type AuthMiddleware struct {
	users  TokenAuthenticator
	logger *slog.Logger
}

// NewAuthMiddleware creates the token-auth middleware.
func NewAuthMiddleware(users TokenAuthenticator, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthMiddleware{
		users:  users,
		logger: logger,
	}
}

// RequireAuth rejects requests without a valid API token and stores the
// resolved requester on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-API-Key")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			c.Abort()
			return
		}

		user, err := m.users.FindByAPIToken(c.Request.Context(), token)
		if err != nil {
			m.logger.Warn("token lookup failed", slog.Any("error", err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Set(ctxRequesterKey, user)
		c.Next()
	}
}

// RequireAdmin rejects authenticated requesters without admin rights. It must
// run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester := GetRequester(c)
		if requester == nil || !requester.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetRequester returns the authenticated user set by RequireAuth, or nil.
func GetRequester(c *gin.Context) *domain.User {
	value, exists := c.Get(ctxRequesterKey)
	if !exists {
		return nil
	}
	user, ok := value.(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// NewCORSMiddleware configures cross-origin access for the web form client.
func NewCORSMiddleware(allowOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// LoggingMiddleware emits one structured log line per request.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
