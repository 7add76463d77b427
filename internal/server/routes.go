package server

import (
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/docintel/docintel/constants"
)

// RateLimit configures the per-IP limiter on upload routes.
type RateLimit struct {
	Every time.Duration
	Burst int
}

// SetupRoutes wires the API surface the frontend consumes.
func SetupRoutes(router *gin.Engine, handler *Handler, rl RateLimit) {
	router.GET("/health", handler.HealthCheck)

	files := router.Group("/api/files")
	{
		files.POST("/upload", withRateLimit(rl), handler.Upload)
		files.GET("/export", handler.ExportXLSX)
		files.GET("/:id", handler.GetResult)
		files.GET("/:id/download", handler.Download)
	}
}

// withRateLimit applies a per-client-IP token bucket.
func withRateLimit(rl RateLimit) gin.HandlerFunc {
	if rl.Every <= 0 {
		rl.Every = 500 * time.Millisecond
	}
	if rl.Burst <= 0 {
		rl.Burst = 10
	}
	limiters := &sync.Map{}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		v, _ := limiters.LoadOrStore(ip, rate.NewLimiter(rate.Every(rl.Every), rl.Burst))
		if !v.(*rate.Limiter).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": true, "message": "too many requests"})
			return
		}
		c.Next()
	}
}

func contentTypeFromName(filename string) string {
	return constants.ContentTypeForExt(filepath.Ext(filename))
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}
