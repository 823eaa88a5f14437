package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abelbrown/newslens/internal/logging"
)

// NewRouter wires the handlers behind recovery, request logging and CORS.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  allowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", SessionHeader},
			ExposeHeaders: []string{SessionHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/health", h.GetHealth)
	r.GET("/categories", h.GetCategories)
	r.GET("/articles", h.GetArticles)
	r.POST("/articles/:key/analyze", h.PostAnalyze)
	r.POST("/articles/:key/chat", h.PostChat)
	r.GET("/articles/:key/chat", h.GetChat)
	r.GET("/articles/:key/history", h.GetEntryHistory)
	r.POST("/compare", h.PostCompare)
	r.GET("/history", h.GetHistory)
	return r
}

func requestLogger() gin.HandlerFunc {
	log := logging.WithPrefix("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("Request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
