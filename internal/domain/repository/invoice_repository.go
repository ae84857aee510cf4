package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
)

// InvoiceRepository defines the interface for invoice data operations
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByQuotationID(ctx context.Context, quotationID uuid.UUID) (*entity.Invoice, error)
	GetNextInvoiceNumber(ctx context.Context) (int, error)
}
