package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sangkips/quoteflow-api/internal/config"
)

var (
	defaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	defaultMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultHeaders = []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Request-ID"}
)

// CORSMiddleware creates a CORS middleware with the provided configuration
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins:     orDefault(cfg.AllowedOrigins, defaultOrigins),
		AllowMethods:     orDefault(cfg.AllowedMethods, defaultMethods),
		AllowHeaders:     withHeader(orDefault(cfg.AllowedHeaders, defaultHeaders), IdempotencyKeyHeader),
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-ID", "X-Idempotency-Replayed", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	return cors.New(corsConfig)
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

func withHeader(headers []string, header string) []string {
	for _, h := range headers {
		if h == header {
			return headers
		}
	}
	return append(append([]string(nil), headers...), header)
}
