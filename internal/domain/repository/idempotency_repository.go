package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
)

// IdempotencyRepository stores replayable responses of workflow requests
type IdempotencyRepository interface {
	// Find returns the stored response for key and user, or nil
	Find(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error)
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	// DeleteExpired removes keys that expired before cutoff and returns how many
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
