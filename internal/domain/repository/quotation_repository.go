package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// QuotationRepository defines the interface for quotation data operations
type QuotationRepository interface {
	// Create stores a quotation together with its lines and status history
	Create(ctx context.Context, quotation *entity.Quotation) error
	// GetByID returns the quotation with lines and history, or nil when missing
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Quotation, error)
	GetByReference(ctx context.Context, reference string) (*entity.Quotation, error)
	// Update saves header fields and replaces the lines. Status and history
	// are untouched. It returns false and writes nothing when the stored
	// status is no longer quotation.Status.
	Update(ctx context.Context, quotation *entity.Quotation) (bool, error)
	// UpdateDiscount saves the discount and the totals derived from it
	UpdateDiscount(ctx context.Context, quotation *entity.Quotation) error
	// UpdateStatus moves a quotation from one status to another and appends
	// entry in the same transaction. It returns false when the stored status
	// is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from enum.QuotationStatus, entry *entity.StatusHistoryEntry) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *QuotationFilterParams) ([]entity.Quotation, int64, error)
	History(ctx context.Context, id uuid.UUID) ([]entity.StatusHistoryEntry, error)
	GetNextReferenceNumber(ctx context.Context) (int, error)
}

// QuotationFilterParams contains filtering parameters for quotation queries
type QuotationFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	Status     *enum.QuotationStatus
	CustomerID *uuid.UUID
	CreatedBy  *uuid.UUID
	SortBy     string
	SortOrder  string
}
