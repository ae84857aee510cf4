package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is issued from an approved or confirmed order
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	QuotationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"quotation_id"`
	InvoiceNo   string          `gorm:"size:100;unique;not null" json:"invoice_no"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Notes       *string         `gorm:"type:text" json:"notes,omitempty"`
	IssuedBy    uuid.UUID       `gorm:"type:uuid;not null" json:"issued_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new invoice
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}
