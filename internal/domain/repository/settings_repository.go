package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
)

// SettingsRepository stores one UserSettings row per user
type SettingsRepository interface {
	// GetByUserID returns nil when the user never saved settings
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error)
	// Save inserts the user's row or overwrites its defaults
	Save(ctx context.Context, settings *entity.UserSettings) error
}
