package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/standup-agent/internal/httpapi/handlers"
	"github.com/suPer8Hu/standup-agent/internal/httpapi/middleware"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recovery(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", middleware.RequestIDHeader},
	}))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/health", h.Health)
	r.GET("/.well-known/agent.json", h.AgentCard)

	// Telex posts to the root; /a2a/standup is the named alias.
	r.POST("/", h.Webhook)
	r.POST("/a2a/standup", h.Webhook)
	return r
}
