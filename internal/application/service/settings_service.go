package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// SettingsService handles the per-user quotation defaults
type SettingsService struct {
	settingsRepo    repository.SettingsRepository
	currencies      CurrencyDirectory
	defaultCurrency string
	defaultLimit    int
}

// NewSettingsService creates a new settings service. Users without stored
// settings get defaultCurrency and defaultLimit.
func NewSettingsService(settingsRepo repository.SettingsRepository, currencies CurrencyDirectory, defaultCurrency string, defaultLimit int) *SettingsService {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	if !pagination.IsAllowedLimit(defaultLimit) {
		defaultLimit = pagination.DefaultLimit
	}
	return &SettingsService{
		settingsRepo:    settingsRepo,
		currencies:      currencies,
		defaultCurrency: cart.NormalizeCurrency(defaultCurrency),
		defaultLimit:    defaultLimit,
	}
}

// GetSettings retrieves user settings. Users who never saved any get the
// defaults, which are not persisted.
func (s *SettingsService) GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error) {
	settings, err := s.settingsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if settings == nil {
		settings = &entity.UserSettings{
			UserID:    userID,
			Currency:  s.defaultCurrency,
			PageLimit: s.defaultLimit,
		}
	}
	return settings, nil
}

// UpdateSettingsInput represents the input for updating settings
type UpdateSettingsInput struct {
	UserID    uuid.UUID
	Currency  string
	PageLimit int
}

// UpdateSettings validates and stores the user's defaults
func (s *SettingsService) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*entity.UserSettings, error) {
	currency := cart.NormalizeCurrency(input.Currency)
	if err := cart.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	if !pagination.IsAllowedLimit(input.PageLimit) {
		return nil, apperror.NewFieldValidationError("page_limit", "must be one of 10, 15, 25, 50, 100")
	}
	if err := s.ensureActive(ctx, currency); err != nil {
		return nil, err
	}

	err := s.settingsRepo.Save(ctx, &entity.UserSettings{
		UserID:    input.UserID,
		Currency:  currency,
		PageLimit: input.PageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return s.GetSettings(ctx, input.UserID)
}

func (s *SettingsService) ensureActive(ctx context.Context, currency string) error {
	currencies, err := s.currencies.ListCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("list currencies: %w", err)
	}
	for _, c := range currencies {
		if c.Code == currency {
			return nil
		}
	}
	return apperror.NewFieldValidationError("currency", currency+" is not an available currency")
}
