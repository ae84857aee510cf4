package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/domain/pricing"
	"github.com/sangkips/quoteflow-api/internal/domain/workflow"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// CatalogQuery selects one catalog page priced in Currency
type CatalogQuery struct {
	Currency string
	Filters  cart.FilterCriteria
	Search   string
	Page     int
	Limit    int
}

// CatalogPage is one page of catalog items with the facet values available
// under the query's category
type CatalogPage struct {
	Items      []cart.Item            `json:"items"`
	Facets     cart.FacetSummary      `json:"facets"`
	Pagination *pagination.Pagination `json:"pagination"`
}

// CatalogClient serves priced catalog data
type CatalogClient interface {
	FetchCatalogPage(ctx context.Context, query CatalogQuery) (*CatalogPage, error)
	FetchCatalogAll(ctx context.Context, currency string) ([]cart.Item, error)
}

// CurrencyDirectory lists the currencies a session may switch to
type CurrencyDirectory interface {
	ListCurrencies(ctx context.Context) ([]entity.Currency, error)
}

// DraftLine is one cart line as submitted for saving
type DraftLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// QuotationDraft is the savable state of a cart. A nil ID creates a new
// quotation.
type QuotationDraft struct {
	ID            *uuid.UUID
	CustomerID    *uuid.UUID
	CustomerName  string
	Currency      string
	Discount      pricing.DiscountPolicy
	VATPercentage decimal.Decimal
	Note          *string
	Lines         []DraftLine
}

// InvoiceFields are the caller supplied parts of an invoice
type InvoiceFields struct {
	DueDate *time.Time
	Notes   *string
}

// TransitionResult is the committed outcome of a status transition
type TransitionResult struct {
	Quotation *entity.Quotation `json:"quotation"`
	Outcome   workflow.Outcome  `json:"outcome"`
	Message   string            `json:"message"`
}

// Result is the outcome of a quotation side effect
type Result struct {
	Message   string            `json:"message"`
	Quotation *entity.Quotation `json:"quotation,omitempty"`
	Invoice   *entity.Invoice   `json:"invoice,omitempty"`
}

// QuotationClient performs the backend side of the quotation workflow
type QuotationClient interface {
	GetQuotation(ctx context.Context, id uuid.UUID) (*entity.Quotation, error)
	SaveQuotation(ctx context.Context, actor entity.Actor, draft *QuotationDraft) (*entity.Quotation, error)
	SubmitTransition(ctx context.Context, actor entity.Actor, id uuid.UUID, target enum.QuotationStatus) (*TransitionResult, error)
	UpdateDiscount(ctx context.Context, actor entity.Actor, id uuid.UUID, policy pricing.DiscountPolicy) (*Result, error)
	DeleteQuotation(ctx context.Context, actor entity.Actor, id uuid.UUID) (*Result, error)
	CreateInvoice(ctx context.Context, actor entity.Actor, id uuid.UUID, fields InvoiceFields) (*Result, error)
}

// EventType names a workflow event pushed to subscribers
type EventType string

const (
	EventTransitioned         EventType = "quotation.transitioned"
	EventDeleted              EventType = "quotation.deleted"
	EventInvoiced             EventType = "quotation.invoiced"
	EventSaved                EventType = "quotation.saved"
	EventAwaitingConfirmation EventType = "currency.awaiting_confirmation"
	EventCurrencyApplied      EventType = "currency.applied"
)

// Event is a notification about a session or its quotation
type Event struct {
	Type        EventType   `json:"type"`
	SessionID   uuid.UUID   `json:"session_id"`
	ActorID     uuid.UUID   `json:"actor_id"`
	QuotationID *uuid.UUID  `json:"quotation_id,omitempty"`
	Status      string      `json:"status,omitempty"`
	Message     string      `json:"message,omitempty"`
	Data        interface{} `json:"data,omitempty"`
	At          time.Time   `json:"at"`
}

// Notifier receives workflow events. Publish must not block.
type Notifier interface {
	Publish(event Event)
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Publish(Event) {}

// bounded runs fn under timeout and classifies the failure. Domain errors pass
// through unchanged; anything else becomes a retryable network or timeout
// error.
func bounded(ctx context.Context, timeout time.Duration, operation string, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.NewTimeoutError(operation, err)
	}
	if appErr := (*apperror.AppError)(nil); errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
		return err
	}
	return apperror.NewNetworkError(operation, err)
}
