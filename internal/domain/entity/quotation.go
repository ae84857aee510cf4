package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quotation represents a priced proposal for a customer. It becomes an order
// once it leaves draft.
type Quotation struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key" json:"id"`
	Reference     string               `gorm:"size:100;unique;not null" json:"reference"`
	CustomerID    *uuid.UUID           `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CustomerName  string               `gorm:"size:255" json:"customer_name"`
	Currency      string               `gorm:"size:3;not null" json:"currency"`
	DiscountType  enum.DiscountType    `gorm:"default:0" json:"discount_type"`
	DiscountValue decimal.Decimal      `gorm:"type:decimal(15,2);default:0" json:"discount_value"`
	VATPercentage decimal.Decimal      `gorm:"column:vat_percentage;type:decimal(5,2);default:0" json:"vat_percentage"`
	Status        enum.QuotationStatus `gorm:"default:0;index" json:"status"`
	CreatedBy     uuid.UUID            `gorm:"type:uuid;not null;index" json:"created_by"`
	UpdatedBy     *uuid.UUID           `gorm:"type:uuid" json:"updated_by,omitempty"`
	ValidTill     time.Time            `json:"valid_till"`
	Subtotal      decimal.Decimal      `gorm:"type:decimal(15,2);default:0" json:"subtotal"`
	TotalDiscount decimal.Decimal      `gorm:"type:decimal(15,2);default:0" json:"total_discount"`
	VATAmount     decimal.Decimal      `gorm:"column:vat_amount;type:decimal(15,2);default:0" json:"vat_amount"`
	TotalAmount   decimal.Decimal      `gorm:"type:decimal(15,2);default:0" json:"total_amount"`
	Note          *string              `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	DeletedAt     gorm.DeletedAt       `gorm:"index" json:"-"`

	// Relationships
	Customer      *Customer            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Lines         []QuotationLine      `gorm:"foreignKey:QuotationID" json:"lines,omitempty"`
	StatusHistory []StatusHistoryEntry `gorm:"foreignKey:QuotationID" json:"status_history,omitempty"`
}

// BeforeCreate generates a UUID before creating a new quotation
func (q *Quotation) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Quotation model
func (Quotation) TableName() string {
	return "quotations"
}

// LastHistory returns the most recent status history entry, or nil
func (q *Quotation) LastHistory() *StatusHistoryEntry {
	if len(q.StatusHistory) == 0 {
		return nil
	}
	return &q.StatusHistory[len(q.StatusHistory)-1]
}

// RecordStatus sets the status and appends the matching history entry in one
// step. It is the only place status should change.
func (q *Quotation) RecordStatus(status enum.QuotationStatus, reason enum.ReviewReason, actorID *uuid.UUID, at time.Time) StatusHistoryEntry {
	entry := StatusHistoryEntry{
		QuotationID:  q.ID,
		Status:       status,
		ReviewReason: reason,
		ActorID:      actorID,
		CreatedAt:    at,
	}
	history := make([]StatusHistoryEntry, len(q.StatusHistory), len(q.StatusHistory)+1)
	copy(history, q.StatusHistory)
	q.StatusHistory = append(history, entry)
	q.Status = status
	if actorID != nil {
		q.UpdatedBy = actorID
	}
	return entry
}

// QuotationLine represents a cart line: one catalog item with a unit price
// captured in the quotation currency when it was selected.
type QuotationLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	QuotationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"quotation_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	ProductCode string          `gorm:"size:100" json:"product_code"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new quotation line
func (l *QuotationLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the QuotationLine model
func (QuotationLine) TableName() string {
	return "quotation_lines"
}

// StatusHistoryEntry is one append-only record of a status change
type StatusHistoryEntry struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key" json:"id"`
	QuotationID  uuid.UUID            `gorm:"type:uuid;not null;index" json:"quotation_id"`
	Status       enum.QuotationStatus `gorm:"not null" json:"status"`
	ReviewReason enum.ReviewReason    `gorm:"size:20" json:"review_reason,omitempty"`
	ActorID      *uuid.UUID           `gorm:"type:uuid" json:"actor_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new history entry
func (h *StatusHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the StatusHistoryEntry model
func (StatusHistoryEntry) TableName() string {
	return "quotation_status_history"
}
