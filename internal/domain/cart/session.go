package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/domain/pricing"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// SelectedLine is one selection entry joined with its catalog item. Hidden
// lines are excluded by the active filters but still count toward totals.
type SelectedLine struct {
	Item      Item            `json:"item"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Hidden    bool            `json:"hidden"`
}

// Session is the editing state of one quotation cart. Callers must hold the
// session lock for every read or write.
type Session struct {
	mu sync.Mutex

	ID            uuid.UUID
	Actor         entity.Actor
	QuotationID   *uuid.UUID
	Reference     string
	Status        enum.QuotationStatus
	Selection     *SelectionStore
	View          *FilterView
	Cursor        *pagination.Cursor
	Currency      *CurrencyReconciler
	Discount      pricing.DiscountPolicy
	VATPercentage decimal.Decimal
	Page          []Item
	Facets        FacetSummary
	LastActive    time.Time

	snapshots  map[uuid.UUID]Item
	fetchToken uint64
}

// NewSession creates an empty draft session priced in currency
func NewSession(id uuid.UUID, actor entity.Actor, currency string, vat decimal.Decimal, limit int, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		ID:            id,
		Actor:         actor,
		Status:        enum.QuotationStatusDraft,
		Selection:     NewSelectionStore(),
		View:          NewFilterView(),
		Cursor:        pagination.NewCursor(limit),
		Currency:      NewCurrencyReconciler(currency, now),
		Discount:      pricing.NoDiscount(),
		VATPercentage: vat,
		LastActive:    now(),
		snapshots:     make(map[uuid.UUID]Item),
	}
}

// Lock acquires the session
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// Touch records activity at t
func (s *Session) Touch(t time.Time) {
	s.LastActive = t
}

// LoadQuotation replaces the cart with the saved state of q
func (s *Session) LoadQuotation(q *entity.Quotation) {
	id := q.ID
	s.QuotationID = &id
	s.Reference = q.Reference
	s.Status = q.Status
	s.Currency.Reset(q.Currency)
	s.Discount = pricing.DiscountPolicy{Type: q.DiscountType, Value: q.DiscountValue}
	s.VATPercentage = q.VATPercentage
	s.ClearCart()
	for _, line := range q.Lines {
		s.Selection.put(line.ProductID, line.Quantity)
		s.snapshots[line.ProductID] = Item{
			ID:        line.ProductID,
			Code:      line.ProductCode,
			Name:      line.ProductName,
			Currency:  s.Currency.Active(),
			UnitPrice: line.UnitPrice,
		}
	}
	s.InvalidateCatalog()
}

// ApplyStatus records a status the backend committed
func (s *Session) ApplyStatus(status enum.QuotationStatus) {
	s.Status = status
}

// IssueFetchToken starts a catalog fetch. Only the most recently issued token
// is accepted back.
func (s *Session) IssueFetchToken() uint64 {
	s.fetchToken++
	return s.fetchToken
}

// IsCurrent reports whether token belongs to the latest fetch
func (s *Session) IsCurrent(token uint64) bool {
	return token == s.fetchToken
}

// AcceptMaster stores the full catalog fetched under token. It returns false
// and stores nothing when the fetch was superseded.
func (s *Session) AcceptMaster(token uint64, items []Item) bool {
	if !s.IsCurrent(token) {
		return false
	}
	s.View.SetMaster(items)
	return true
}

// AcceptPage stores one catalog page fetched under token
func (s *Session) AcceptPage(token uint64, items []Item, facets FacetSummary, meta *pagination.Pagination) bool {
	if !s.IsCurrent(token) {
		return false
	}
	s.Page = items
	s.Facets = facets
	s.Cursor.Update(meta)
	return true
}

// InvalidateCatalog drops catalog data priced in a previous currency and
// supersedes any fetch in flight
func (s *Session) InvalidateCatalog() {
	s.View.ClearMaster()
	s.Page = nil
	s.Facets = nil
	s.Cursor.Reset()
	s.fetchToken++
}

// ClearCart removes every selected line
func (s *Session) ClearCart() {
	s.Selection.Clear()
	s.snapshots = make(map[uuid.UUID]Item)
}

func (s *Session) lookup(id uuid.UUID) (Item, bool) {
	if item, ok := s.View.Lookup(id); ok {
		return item, true
	}
	for _, item := range s.Page {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Select adds a catalog item to the cart. The item must be part of the loaded
// catalog so its price in the active currency is known.
func (s *Session) Select(id uuid.UUID) error {
	item, ok := s.lookup(id)
	if !ok {
		return apperror.NewNotFoundError("Catalog item")
	}
	if !s.Selection.IsSelected(id) {
		s.snapshots[id] = item
	}
	s.Selection.Select(id)
	return nil
}

// Deselect removes an item from the cart
func (s *Session) Deselect(id uuid.UUID) {
	s.Selection.Deselect(id)
	delete(s.snapshots, id)
}

// Lines joins the selection with the master list. Prices always come from
// the snapshot taken at selection or load time; the master list only fills
// in catalog attributes. A new price needs a confirmed refresh.
func (s *Session) Lines() []SelectedLine {
	ids := s.Selection.IDs()
	lines := make([]SelectedLine, 0, len(ids))
	for _, id := range ids {
		item := s.snapshots[id]
		if current, ok := s.View.Lookup(id); ok {
			current.UnitPrice = item.UnitPrice
			current.Currency = item.Currency
			item = current
		}
		qty := s.Selection.Quantity(id)
		lines = append(lines, SelectedLine{
			Item:      item,
			Quantity:  qty,
			LineTotal: pricing.Line{UnitPrice: item.UnitPrice, Quantity: qty}.Total(),
			Hidden:    !s.View.IsVisible(id),
		})
	}
	return lines
}

// PricingLines returns the pricing view of Lines
func (s *Session) PricingLines() []pricing.Line {
	lines := s.Lines()
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{UnitPrice: l.Item.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// Totals recomputes every total from the current lines
func (s *Session) Totals() pricing.Totals {
	return pricing.Compute(s.PricingLines(), s.Discount, s.VATPercentage)
}

// Reset returns the session to an empty draft in currency
func (s *Session) Reset(currency string) {
	s.QuotationID = nil
	s.Reference = ""
	s.Status = enum.QuotationStatusDraft
	s.ClearCart()
	s.View.SetCriteria(FilterCriteria{})
	s.Cursor.SetSearch("")
	s.Currency.Reset(currency)
	s.Discount = pricing.NoDiscount()
	s.InvalidateCatalog()
}
