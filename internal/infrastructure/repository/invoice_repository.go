package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/quoteflow-api/internal/domain/repository"
	"gorm.io/gorm"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) domainRepo.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) GetByQuotationID(ctx context.Context, quotationID uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := r.db.WithContext(ctx).First(&invoice, "quotation_id = ?", quotationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) GetNextInvoiceNumber(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&entity.Invoice{}).Count(&count).Error
	return int(count) + 1, err
}
