package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	domainRepo "github.com/sangkips/quoteflow-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var quotationSortColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"reference":    true,
	"total_amount": true,
	"status":       true,
}

type quotationRepository struct {
	db *gorm.DB
}

// NewQuotationRepository creates a new quotation repository
func NewQuotationRepository(db *gorm.DB) domainRepo.QuotationRepository {
	return &quotationRepository{db: db}
}

func (r *quotationRepository) Create(ctx context.Context, quotation *entity.Quotation) error {
	return r.db.WithContext(ctx).Create(quotation).Error
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (r *quotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Quotation, error) {
	var quotation entity.Quotation
	err := r.db.WithContext(ctx).
		Scopes(withDetails).
		First(&quotation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &quotation, err
}

func (r *quotationRepository) GetByReference(ctx context.Context, reference string) (*entity.Quotation, error) {
	var quotation entity.Quotation
	err := r.db.WithContext(ctx).
		Scopes(withDetails).
		First(&quotation, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &quotation, err
}

func (r *quotationRepository) Update(ctx context.Context, quotation *entity.Quotation) (bool, error) {
	saved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(quotation).
			Where("status = ?", quotation.Status).
			Select("*").
			Omit(clause.Associations, "id", "status", "reference", "created_by", "created_at", "deleted_at").
			Updates(quotation)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		saved = true
		if err := tx.Where("quotation_id = ?", quotation.ID).Delete(&entity.QuotationLine{}).Error; err != nil {
			return err
		}
		if len(quotation.Lines) == 0 {
			return nil
		}
		for i := range quotation.Lines {
			quotation.Lines[i].ID = uuid.Nil
			quotation.Lines[i].QuotationID = quotation.ID
		}
		return tx.Create(&quotation.Lines).Error
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

func (r *quotationRepository) UpdateDiscount(ctx context.Context, quotation *entity.Quotation) error {
	return r.db.WithContext(ctx).Model(&entity.Quotation{}).
		Where("id = ?", quotation.ID).
		Updates(map[string]interface{}{
			"discount_type":  quotation.DiscountType,
			"discount_value": quotation.DiscountValue,
			"subtotal":       quotation.Subtotal,
			"total_discount": quotation.TotalDiscount,
			"vat_amount":     quotation.VATAmount,
			"total_amount":   quotation.TotalAmount,
			"updated_by":     quotation.UpdatedBy,
		}).Error
}

func (r *quotationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from enum.QuotationStatus, entry *entity.StatusHistoryEntry) (bool, error) {
	moved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": entry.Status}
		if entry.ActorID != nil {
			updates["updated_by"] = *entry.ActorID
		}
		res := tx.Model(&entity.Quotation{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		entry.QuotationID = id
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		moved = true
		return nil
	})
	return moved, err
}

func (r *quotationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Quotation{}, "id = ?", id).Error
}

func (r *quotationRepository) List(ctx context.Context, params *domainRepo.QuotationFilterParams) ([]entity.Quotation, int64, error) {
	var quotations []entity.Quotation
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Quotation{}).
		Scopes(Contains(params.Search, "reference", "customer_name"))

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.CustomerID != nil {
		query = query.Where("customer_id = ?", *params.CustomerID)
	}
	if params.CreatedBy != nil {
		query = query.Where("created_by = ?", *params.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Scopes(
			Paginate(params.Pagination),
			OrderBy(params.SortBy, params.SortOrder, quotationSortColumns, "created_at"),
		).
		Preload("Customer").
		Find(&quotations).Error

	return quotations, total, err
}

func (r *quotationRepository) History(ctx context.Context, id uuid.UUID) ([]entity.StatusHistoryEntry, error) {
	var history []entity.StatusHistoryEntry
	err := r.db.WithContext(ctx).
		Where("quotation_id = ?", id).
		Order("created_at ASC").
		Find(&history).Error
	return history, err
}

// GetNextReferenceNumber counts soft-deleted rows too so references are never reused
func (r *quotationRepository) GetNextReferenceNumber(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&entity.Quotation{}).Count(&count).Error
	return int(count) + 1, err
}
