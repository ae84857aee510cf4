package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// DefaultIdempotencyKeyTTL is how long keys are valid when not configured
	DefaultIdempotencyKeyTTL = 24 * time.Hour
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo   repository.IdempotencyRepository
	TTL    time.Duration
	Logger *zap.Logger
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a request already processed
// under the same Idempotency-Key. Only successful responses are stored, so a
// failed transition can be retried with the same key. Reusing a key with a
// different body is rejected.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyKeyTTL
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		actor, ok := CurrentActor(c)
		if !ok {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "Unable to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		hash := hex.EncodeToString(sum[:])
		endpoint := c.Request.Method + " " + c.Request.URL.Path

		existing, err := config.Repo.Find(c.Request.Context(), key, actor.ID)
		if err != nil {
			log.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if existing != nil && !existing.IsExpired() {
			if existing.Endpoint != endpoint || existing.RequestHash != hash {
				response.ErrorWithCode(c, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
				c.Abort()
				return
			}
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
			c.Abort()
			return
		}

		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		record := &entity.IdempotencyKey{
			Key:          key,
			UserID:       actor.ID,
			Endpoint:     endpoint,
			RequestHash:  hash,
			ResponseCode: status,
			ResponseBody: blw.body.String(),
			ExpiresAt:    time.Now().Add(ttl),
		}
		if err := config.Repo.Create(c.Request.Context(), record); err != nil {
			log.Warn("failed to store idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
}
