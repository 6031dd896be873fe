package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// NewRouter wires middleware and routes onto a gin engine.
func NewRouter(
	engine *gin.Engine,
	logger *slog.Logger,
	checkoutHandler *CheckoutHandler,
	uploadHandler *UploadHandler,
	userHandler *UserHandler,
	authMiddleware *AuthMiddleware,
) {
	engine.Use(gin.Recovery())
	engine.Use(NewCORSMiddleware([]string{"*"}))
	engine.Use(LoggingMiddleware(logger))

	engine.GET("/health", healthCheck)
	engine.POST("/register", userHandler.Register)

	apiGroup := engine.Group("/api")
	apiGroup.Use(authMiddleware.RequireAuth())
	{
		addRoutes(apiGroup, []route{
			{Method: http.MethodPost, Path: "/checkouts", Handler: checkoutHandler.Create},
			{Method: http.MethodGet, Path: "/checkouts", Handler: checkoutHandler.List},
			{Method: http.MethodPost, Path: "/uploads", Handler: uploadHandler.Upload},
			{Method: http.MethodGet, Path: "/uploads", Handler: uploadHandler.List},
		})

		admin := apiGroup.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		addRoutes(admin, []route{
			{Method: http.MethodPatch, Path: "/checkouts/:id/approve", Handler: checkoutHandler.Approve},
			{Method: http.MethodPatch, Path: "/checkouts/:id/status", Handler: checkoutHandler.UpdateStatus},
			{Method: http.MethodPatch, Path: "/users/:username/activate", Handler: userHandler.Activate},
		})
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, r.Handler)
		case http.MethodPost:
			g.POST(r.Path, r.Handler)
		case http.MethodPatch:
			g.PATCH(r.Path, r.Handler)
		default:
			g.Any(r.Path, r.Handler)
		}
	}
}
