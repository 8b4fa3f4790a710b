package server

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/recall-backend/internal/handlers"
	"github.com/yungbote/recall-backend/internal/middleware"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/services"
	"github.com/yungbote/recall-backend/internal/ws"
)

type Router struct {
	engine *gin.Engine
}

func NewRouter(
	log *logger.Logger,
	auth services.AuthService,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	gateway *ws.Gateway,
) *Router {
	if strings.EqualFold(os.Getenv("APP_MODE"), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/healthcheck", healthHandler.Check)

	authGroup := engine.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api := engine.Group("/api")
	api.Use(middleware.RequireAuth(log, auth))
	{
		api.POST("/chat", chatHandler.Create)
		api.GET("/chat", chatHandler.List)
		api.PATCH("/chat/:id", chatHandler.Rename)
		api.DELETE("/chat/:id", chatHandler.Delete)
		api.GET("/chat/:id/messages", chatHandler.Messages)
	}

	// The gateway does its own token check before upgrading, so the
	// socket route skips the gin middleware.
	engine.GET("/ws", func(c *gin.Context) {
		gateway.HandleUpgrade(c.Writer, c.Request)
	})

	return &Router{engine: engine}
}

func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
