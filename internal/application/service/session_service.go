package service

import (
	"context"
	"sync"
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
	"go.uber.org/zap"
)

// SessionOptions configures new sessions and collaborator calls
type SessionOptions struct {
	DefaultCurrency string
	DefaultLimit    int
	VATPercentage   decimal.Decimal
	RemoteTimeout   time.Duration
	IdleTTL         time.Duration
}

// SessionService owns the editing sessions of quotation carts. Every intent
// on a session runs under that session's lock, so intents are applied one at
// a time in arrival order.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*cart.Session

	catalog    CatalogClient
	quotations QuotationClient
	currencies CurrencyDirectory
	notifier   Notifier
	machine    *workflow.Machine
	opts       SessionOptions
	now        func() time.Time
	logger     *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	catalog CatalogClient,
	quotations QuotationClient,
	currencies CurrencyDirectory,
	notifier Notifier,
	opts SessionOptions,
	logger *zap.Logger,
) *SessionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	if !pagination.IsAllowedLimit(opts.DefaultLimit) {
		opts.DefaultLimit = pagination.DefaultLimit
	}
	return &SessionService{
		sessions:   make(map[uuid.UUID]*cart.Session),
		catalog:    catalog,
		quotations: quotations,
		currencies: currencies,
		notifier:   notifier,
		machine:    workflow.NewMachine(),
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source, used by tests
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	s.machine = workflow.NewMachineWithClock(now)
	return s
}

// CatalogRow is a catalog item as shown in the picker
type CatalogRow struct {
	cart.Item
	Selected bool `json:"selected"`
	Quantity int  `json:"quantity,omitempty"`
}

// SessionView is a read-only snapshot of a session. Totals are recomputed
// for every snapshot.
type SessionView struct {
	ID                uuid.UUID                   `json:"id"`
	QuotationID       *uuid.UUID                  `json:"quotation_id,omitempty"`
	Reference         string                      `json:"reference,omitempty"`
	Status            enum.QuotationStatus        `json:"status"`
	StatusLabel       string                      `json:"status_label"`
	Currency          string                      `json:"currency"`
	DisplayedCurrency string                      `json:"displayed_currency"`
	Pending           *cart.CurrencyChangeRequest `json:"pending,omitempty"`
	Filters           cart.FilterCriteria         `json:"filters"`
	Facets            cart.FacetSummary           `json:"facets,omitempty"`
	Search            string                      `json:"search,omitempty"`
	Cursor            pagination.Cursor           `json:"cursor"`
	PaginationVisible bool                        `json:"pagination_visible"`
	Items             []CatalogRow                `json:"items"`
	Lines             []cart.SelectedLine         `json:"lines"`
	HiddenCount       int                         `json:"hidden_count"`
	Discount          pricing.DiscountPolicy      `json:"discount"`
	VATPercentage     decimal.Decimal             `json:"vat_percentage"`
	Totals            pricing.Totals              `json:"totals"`
	AllowedActions    []workflow.Action           `json:"allowed_actions"`
	Stale             bool                        `json:"stale,omitempty"`
}

func (s *SessionService) view(sess *cart.Session) *SessionView {
	lines := sess.Lines()
	hidden := 0
	for _, l := range lines {
		if l.Hidden {
			hidden++
		}
	}
	rows := make([]CatalogRow, 0, len(sess.Page))
	for _, item := range sess.Page {
		rows = append(rows, CatalogRow{
			Item:     item,
			Selected: sess.Selection.IsSelected(item.ID),
			Quantity: sess.Selection.Quantity(item.ID),
		})
	}
	return &SessionView{
		ID:                sess.ID,
		QuotationID:       sess.QuotationID,
		Reference:         sess.Reference,
		Status:            sess.Status,
		StatusLabel:       sess.Status.DisplayName(),
		Currency:          sess.Currency.Active(),
		DisplayedCurrency: sess.Currency.Displayed(),
		Pending:           sess.Currency.Pending(),
		Filters:           sess.View.Criteria(),
		Facets:            sess.Facets,
		Search:            sess.Cursor.Search,
		Cursor:            *sess.Cursor,
		PaginationVisible: sess.Cursor.ControlsVisible(),
		Items:             rows,
		Lines:             lines,
		HiddenCount:       hidden,
		Discount:          sess.Discount,
		VATPercentage:     sess.VATPercentage,
		Totals:            sess.Totals(),
		AllowedActions:    s.machine.AllowedActions(sess.Status, sess.Actor),
	}
}

func (s *SessionService) register(sess *cart.Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

func (s *SessionService) lookup(id uuid.UUID) *cart.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// acquire locks the session for actor. Sessions belong to the actor that
// opened them; anyone else gets not found.
func (s *SessionService) acquire(id uuid.UUID, actor entity.Actor) (*cart.Session, error) {
	sess := s.lookup(id)
	if sess == nil {
		return nil, apperror.NewNotFoundError("Session")
	}
	sess.Lock()
	if s.lookup(id) != sess || sess.Actor.ID != actor.ID {
		sess.Unlock()
		return nil, apperror.NewNotFoundError("Session")
	}
	sess.Actor = actor
	sess.Touch(s.now())
	return sess, nil
}

func (s *SessionService) with(id uuid.UUID, actor entity.Actor, fn func(sess *cart.Session) error) (*SessionView, error) {
	sess, err := s.acquire(id, actor)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	if err := fn(sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *SessionService) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := bounded(ctx, s.opts.RemoteTimeout, operation, fn)
	if err != nil && (apperror.IsKind(err, apperror.KindNetwork) || apperror.IsKind(err, apperror.KindTimeout)) {
		s.logger.Warn("collaborator call failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

func (s *SessionService) publish(sess *cart.Session, typ EventType, message string, data interface{}) {
	s.notifier.Publish(Event{
		Type:        typ,
		SessionID:   sess.ID,
		ActorID:     sess.Actor.ID,
		QuotationID: sess.QuotationID,
		Status:      sess.Status.String(),
		Message:     message,
		Data:        data,
		At:          s.now().UTC(),
	})
}

func (s *SessionService) ensureSupported(ctx context.Context, currency string) error {
	if err := cart.ValidateCurrency(currency); err != nil {
		return err
	}
	var currencies []entity.Currency
	err := s.call(ctx, "List currencies", func(ctx context.Context) error {
		var err error
		currencies, err = s.currencies.ListCurrencies(ctx)
		return err
	})
	if err != nil {
		return err
	}
	for _, c := range currencies {
		if c.Code == currency {
			return nil
		}
	}
	return apperror.NewFieldValidationError("currency", currency+" is not an available currency")
}

// OpenInput represents the input for opening a session
type OpenInput struct {
	Currency    string
	QuotationID *uuid.UUID
	Limit       int
}

// Open starts a session, empty or loaded from a saved quotation. The catalog
// is not fetched; callers follow up with LoadCatalog.
func (s *SessionService) Open(ctx context.Context, actor entity.Actor, input OpenInput) (*SessionView, error) {
	currency := cart.NormalizeCurrency(input.Currency)
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}
	limit := input.Limit
	if !pagination.IsAllowedLimit(limit) {
		limit = s.opts.DefaultLimit
	}

	var quotation *entity.Quotation
	if input.QuotationID != nil {
		err := s.call(ctx, "Load quotation", func(ctx context.Context) error {
			var err error
			quotation, err = s.quotations.GetQuotation(ctx, *input.QuotationID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if quotation.CreatedBy != actor.ID && !actor.IsAdmin() {
			return nil, apperror.NewNotFoundError("Quotation")
		}
		currency = quotation.Currency
	}
	if err := s.ensureSupported(ctx, currency); err != nil {
		return nil, err
	}

	sess := cart.NewSession(uuid.New(), actor, currency, s.opts.VATPercentage, limit, s.now)
	if quotation != nil {
		sess.LoadQuotation(quotation)
	}
	s.register(sess)

	s.logger.Debug("session opened",
		zap.Stringer("session", sess.ID),
		zap.Stringer("actor", actor.ID),
		zap.String("currency", currency))
	return s.view(sess), nil
}

// Close resets and drops a session
func (s *SessionService) Close(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	sess, err := s.acquire(id, actor)
	if err != nil {
		return err
	}
	defer sess.Unlock()
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	sess.Reset(s.opts.DefaultCurrency)
	return nil
}

// View returns a snapshot of the session
func (s *SessionService) View(ctx context.Context, actor entity.Actor, id uuid.UUID) (*SessionView, error) {
	return s.with(id, actor, func(*cart.Session) error { return nil })
}

// Count returns the number of open sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func guardCartEdit(sess *cart.Session) error {
	if err := workflow.EnsureLinesEditable(sess.Status); err != nil {
		return err
	}
	return sess.Currency.Guard()
}

// Select adds a catalog item to the cart with quantity 1
func (s *SessionService) Select(ctx context.Context, actor entity.Actor, id, itemID uuid.UUID) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if err := guardCartEdit(sess); err != nil {
			return err
		}
		return sess.Select(itemID)
	})
}

// Deselect removes an item from the cart
func (s *SessionService) Deselect(ctx context.Context, actor entity.Actor, id, itemID uuid.UUID) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if err := guardCartEdit(sess); err != nil {
			return err
		}
		sess.Deselect(itemID)
		return nil
	})
}

// AdjustQuantity changes the quantity of a selected item by delta, never
// below 1
func (s *SessionService) AdjustQuantity(ctx context.Context, actor entity.Actor, id, itemID uuid.UUID, delta int) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if err := guardCartEdit(sess); err != nil {
			return err
		}
		_, err := sess.Selection.AdjustQuantity(itemID, delta)
		return err
	})
}

// SetQuantity sets the quantity of a selected item
func (s *SessionService) SetQuantity(ctx context.Context, actor entity.Actor, id, itemID uuid.UUID, quantity int) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if err := guardCartEdit(sess); err != nil {
			return err
		}
		return sess.Selection.SetQuantity(itemID, quantity)
	})
}

// changeBrowse applies a filter, search or paging change and refetches the
// page when mutate reports a change
func (s *SessionService) changeBrowse(ctx context.Context, actor entity.Actor, id uuid.UUID, mutate func(sess *cart.Session) (bool, error)) (*SessionView, error) {
	changed := false
	view, err := s.with(id, actor, func(sess *cart.Session) error {
		if err := sess.Currency.Guard(); err != nil {
			return err
		}
		var err error
		changed, err = mutate(sess)
		return err
	})
	if err != nil || !changed {
		return view, err
	}
	return s.fetch(ctx, actor, id, false)
}

// SetCategory selects a category and clears every dependent facet
func (s *SessionService) SetCategory(ctx context.Context, actor entity.Actor, id uuid.UUID, category string) (*SessionView, error) {
	return s.changeBrowse(ctx, actor, id, func(sess *cart.Session) (bool, error) {
		sess.View.SetCriteria(sess.View.Criteria().WithCategory(category))
		sess.Cursor.Reset()
		return true, nil
	})
}

// SetFacet sets one dependent facet. A category must be selected first.
func (s *SessionService) SetFacet(ctx context.Context, actor entity.Actor, id uuid.UUID, facet cart.Facet, value string) (*SessionView, error) {
	return s.changeBrowse(ctx, actor, id, func(sess *cart.Session) (bool, error) {
		next, err := sess.View.Criteria().WithFacet(facet, value)
		if err != nil {
			return false, err
		}
		sess.View.SetCriteria(next)
		sess.Cursor.Reset()
		return true, nil
	})
}

// ClearFilters removes every facet value
func (s *SessionService) ClearFilters(ctx context.Context, actor entity.Actor, id uuid.UUID) (*SessionView, error) {
	return s.changeBrowse(ctx, actor, id, func(sess *cart.Session) (bool, error) {
		if sess.View.Criteria().IsEmpty() {
			return false, nil
		}
		sess.View.SetCriteria(cart.FilterCriteria{})
		sess.Cursor.Reset()
		return true, nil
	})
}

// SetSearch sets or clears the free-text search. Search results replace the
// paged set and pagination controls are hidden.
func (s *SessionService) SetSearch(ctx context.Context, actor entity.Actor, id uuid.UUID, term string) (*SessionView, error) {
	return s.changeBrowse(ctx, actor, id, func(sess *cart.Session) (bool, error) {
		if sess.Cursor.Search == term {
			return false, nil
		}
		sess.Cursor.SetSearch(term)
		return true, nil
	})
}

// GoToPage moves to page n. Out of range pages are ignored.
func (s *SessionService) GoToPage(ctx context.Context, actor entity.Actor, id uuid.UUID, n int) (*SessionView, error) {
	return s.changeBrowse(ctx, actor, id, func(sess *cart.Session) (bool, error) {
		return sess.Cursor.GoToPage(n), nil
	})
}

// SetLimit changes the page size and returns to page 1. Limits outside the
// allowed set are ignored like out of range pages.
func (s *SessionService) SetLimit(ctx context.Context, actor entity.Actor, id uuid.UUID, limit int) (*SessionView, error) {
	return s.changeBrowse(ctx, actor, id, func(sess *cart.Session) (bool, error) {
		if limit == sess.Cursor.Limit {
			return false, nil
		}
		return sess.Cursor.SetLimit(limit), nil
	})
}

// LoadCatalog fetches the full catalog and the current page in the active
// currency
func (s *SessionService) LoadCatalog(ctx context.Context, actor entity.Actor, id uuid.UUID) (*SessionView, error) {
	if _, err := s.with(id, actor, func(sess *cart.Session) error {
		return sess.Currency.Guard()
	}); err != nil {
		return nil, err
	}
	return s.fetch(ctx, actor, id, true)
}

func pageQuery(sess *cart.Session) CatalogQuery {
	q := CatalogQuery{
		Currency: sess.Currency.Active(),
		Filters:  sess.View.Criteria(),
		Page:     sess.Cursor.Page,
		Limit:    sess.Cursor.Limit,
	}
	if sess.Cursor.SearchActive() {
		q.Search = sess.Cursor.Search
		q.Page = 1
		q.Limit = pagination.MaxLimit
	}
	return q
}

type fetched struct {
	master []cart.Item
	page   *CatalogPage
}

func (s *SessionService) retrieve(ctx context.Context, query CatalogQuery, master bool) (*fetched, error) {
	out := &fetched{}
	if master {
		err := s.call(ctx, "Load catalog", func(ctx context.Context) error {
			var err error
			out.master, err = s.catalog.FetchCatalogAll(ctx, query.Currency)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	err := s.call(ctx, "Load catalog page", func(ctx context.Context) error {
		var err error
		out.page, err = s.catalog.FetchCatalogPage(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// accept stores a fetch result if token is still the latest
func accept(sess *cart.Session, token uint64, f *fetched, master bool) bool {
	if !sess.IsCurrent(token) {
		return false
	}
	if master {
		sess.AcceptMaster(token, f.master)
	}
	sess.AcceptPage(token, f.page.Items, f.page.Facets, f.page.Pagination)
	return true
}

// fetch runs a catalog fetch without holding the session, so later intents
// can supersede it. A superseded result is discarded and the view is marked
// stale.
func (s *SessionService) fetch(ctx context.Context, actor entity.Actor, id uuid.UUID, master bool) (*SessionView, error) {
	sess, err := s.acquire(id, actor)
	if err != nil {
		return nil, err
	}
	master = master || !sess.View.Loaded()
	token := sess.IssueFetchToken()
	query := pageQuery(sess)
	sess.Unlock()

	result, fetchErr := s.retrieve(ctx, query, master)

	sess, err = s.acquire(id, actor)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	if fetchErr != nil {
		return nil, fetchErr
	}
	accepted := accept(sess, token, result, master)
	view := s.view(sess)
	if !accepted {
		s.logger.Debug("discarding superseded catalog response", zap.Stringer("session", id))
		view.Stale = true
	}
	return view, nil
}

// refetchLocked fetches master and page while the caller holds the session
func (s *SessionService) refetchLocked(ctx context.Context, sess *cart.Session) error {
	token := sess.IssueFetchToken()
	result, err := s.retrieve(ctx, pageQuery(sess), true)
	if err != nil {
		return err
	}
	accept(sess, token, result, true)
	return nil
}

// CurrencyResult reports how a currency or refresh request was resolved.
// CatalogError is set when the change was applied but the catalog could not
// be fetched in the new currency; LoadCatalog retries the fetch.
type CurrencyResult struct {
	Decision     cart.Decision               `json:"decision"`
	Pending      *cart.CurrencyChangeRequest `json:"pending,omitempty"`
	Session      *SessionView                `json:"session"`
	CatalogError *apperror.AppError          `json:"catalog_error,omitempty"`
}

// reloadAfterApply refetches the catalog once a currency decision is
// committed. The decision stands even when the fetch fails.
func (s *SessionService) reloadAfterApply(ctx context.Context, sess *cart.Session, result *CurrencyResult) error {
	err := s.refetchLocked(ctx, sess)
	if err == nil {
		return nil
	}
	appErr := apperror.GetAppError(err)
	if appErr == nil {
		return err
	}
	s.logger.Warn("catalog reload after currency change failed",
		zap.Stringer("session", sess.ID),
		zap.String("currency", sess.Currency.Active()),
		zap.Error(err))
	result.CatalogError = appErr
	return nil
}

func (s *SessionService) resolveCurrency(ctx context.Context, actor entity.Actor, id uuid.UUID, request func(sess *cart.Session) (cart.Decision, *cart.CurrencyChangeRequest, error)) (*CurrencyResult, error) {
	sess, err := s.acquire(id, actor)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if !sess.Selection.IsEmpty() {
		if err := workflow.EnsureLinesEditable(sess.Status); err != nil {
			return nil, err
		}
	}
	decision, pending, err := request(sess)
	if err != nil {
		return nil, err
	}

	result := &CurrencyResult{Decision: decision, Pending: pending}
	switch decision {
	case cart.DecisionApplied:
		sess.InvalidateCatalog()
		s.publish(sess, EventCurrencyApplied, "Prices updated to "+sess.Currency.Active(), nil)
		if err := s.reloadAfterApply(ctx, sess, result); err != nil {
			return nil, err
		}
	case cart.DecisionStaged:
		s.publish(sess, EventAwaitingConfirmation, "Changing prices will clear the cart", pending)
	}
	result.Session = s.view(sess)
	return result, nil
}

// RequestCurrencyChange switches the pricing currency. With items in the cart
// the change is staged until confirmed or cancelled.
func (s *SessionService) RequestCurrencyChange(ctx context.Context, actor entity.Actor, id uuid.UUID, currency string) (*CurrencyResult, error) {
	code := cart.NormalizeCurrency(currency)
	if err := s.ensureSupported(ctx, code); err != nil {
		return nil, err
	}
	return s.resolveCurrency(ctx, actor, id, func(sess *cart.Session) (cart.Decision, *cart.CurrencyChangeRequest, error) {
		return sess.Currency.RequestChange(code, sess.Selection)
	})
}

// RequestRefresh reloads catalog prices in the active currency, staged like
// a currency change when the cart is not empty
func (s *SessionService) RequestRefresh(ctx context.Context, actor entity.Actor, id uuid.UUID) (*CurrencyResult, error) {
	return s.resolveCurrency(ctx, actor, id, func(sess *cart.Session) (cart.Decision, *cart.CurrencyChangeRequest, error) {
		return sess.Currency.RequestRefresh(sess.Selection)
	})
}

// ConfirmPending applies the staged request: the cart is cleared and the
// catalog is refetched. The session stays locked until the refetch ends.
func (s *SessionService) ConfirmPending(ctx context.Context, actor entity.Actor, id uuid.UUID) (*CurrencyResult, error) {
	sess, err := s.acquire(id, actor)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	resolved, err := sess.Currency.Confirm()
	if err != nil {
		return nil, err
	}
	sess.ClearCart()
	sess.InvalidateCatalog()
	s.publish(sess, EventCurrencyApplied, "Prices updated to "+resolved.ProposedCurrency, resolved)

	result := &CurrencyResult{Decision: cart.DecisionApplied}
	if err := s.reloadAfterApply(ctx, sess, result); err != nil {
		return nil, err
	}
	result.Session = s.view(sess)
	return result, nil
}

// CancelPending discards the staged request. Nothing but the displayed
// currency changes.
func (s *SessionService) CancelPending(ctx context.Context, actor entity.Actor, id uuid.UUID) (*CurrencyResult, error) {
	view, err := s.with(id, actor, func(sess *cart.Session) error {
		_, err := sess.Currency.Cancel()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CurrencyResult{Decision: cart.DecisionNoChange, Session: view}, nil
}

// SetDiscount edits the discount locally. Saving it is a separate intent.
func (s *SessionService) SetDiscount(ctx context.Context, actor entity.Actor, id uuid.UUID, policy pricing.DiscountPolicy) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if err := sess.Currency.Guard(); err != nil {
			return err
		}
		if err := workflow.EnsureDiscountEditable(sess.Status, actor); err != nil {
			return err
		}
		if err := policy.Validate(); err != nil {
			return err
		}
		sess.Discount = policy
		return nil
	})
}

// SaveInput represents the caller supplied parts of a saved quotation
type SaveInput struct {
	CustomerID   *uuid.UUID
	CustomerName string
	Note         *string
}

// SaveQuotation persists the cart, creating the quotation on first save
func (s *SessionService) SaveQuotation(ctx context.Context, actor entity.Actor, id uuid.UUID, input SaveInput) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if err := guardCartEdit(sess); err != nil {
			return err
		}
		if sess.Selection.IsEmpty() {
			return apperror.NewFieldValidationError("lines", "at least one item must be selected")
		}

		lines := sess.Lines()
		draft := &QuotationDraft{
			ID:            sess.QuotationID,
			CustomerID:    input.CustomerID,
			CustomerName:  input.CustomerName,
			Currency:      sess.Currency.Active(),
			Discount:      sess.Discount,
			VATPercentage: sess.VATPercentage,
			Note:          input.Note,
			Lines:         make([]DraftLine, 0, len(lines)),
		}
		for _, l := range lines {
			draft.Lines = append(draft.Lines, DraftLine{ProductID: l.Item.ID, Quantity: l.Quantity, UnitPrice: l.Item.UnitPrice})
		}

		var saved *entity.Quotation
		err := s.call(ctx, "Save quotation", func(ctx context.Context) error {
			var err error
			saved, err = s.quotations.SaveQuotation(ctx, actor, draft)
			return err
		})
		if err != nil {
			return err
		}
		qid := saved.ID
		sess.QuotationID = &qid
		sess.Reference = saved.Reference
		sess.ApplyStatus(saved.Status)
		s.publish(sess, EventSaved, "Quotation "+saved.Reference+" saved", nil)
		return nil
	})
}

// SaveDiscount persists the session's discount on the saved quotation. It is
// the only cart edit available to approvers during review.
func (s *SessionService) SaveDiscount(ctx context.Context, actor entity.Actor, id uuid.UUID) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if sess.QuotationID == nil {
			return apperror.NewBadRequestError("Save the quotation before updating its discount")
		}
		if err := sess.Currency.Guard(); err != nil {
			return err
		}
		if err := workflow.EnsureDiscountEditable(sess.Status, actor); err != nil {
			return err
		}
		policy := sess.Discount
		return s.call(ctx, "Update discount", func(ctx context.Context) error {
			_, err := s.quotations.UpdateDiscount(ctx, actor, *sess.QuotationID, policy)
			return err
		})
	})
}

// TransitionView is the result of a committed status transition
type TransitionView struct {
	Outcome workflow.Outcome `json:"outcome"`
	Message string           `json:"message"`
	Session *SessionView     `json:"session"`
}

// resync reloads the stored status after the backend rejected a transition
// that was valid locally
func (s *SessionService) resync(ctx context.Context, sess *cart.Session) {
	var q *entity.Quotation
	err := s.call(ctx, "Load quotation", func(ctx context.Context) error {
		var err error
		q, err = s.quotations.GetQuotation(ctx, *sess.QuotationID)
		return err
	})
	if err != nil {
		return
	}
	sess.ApplyStatus(q.Status)
}

// Transition moves the saved quotation to target. The status is validated
// locally, submitted, and updated only after the backend commits it.
func (s *SessionService) Transition(ctx context.Context, actor entity.Actor, id uuid.UUID, target enum.QuotationStatus) (*TransitionView, error) {
	sess, err := s.acquire(id, actor)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if sess.QuotationID == nil {
		return nil, apperror.NewBadRequestError("Save the quotation before changing its status")
	}
	if _, err := s.machine.Plan(sess.Status, target, actor); err != nil {
		return nil, err
	}

	var result *TransitionResult
	err = s.call(ctx, "Submit transition", func(ctx context.Context) error {
		var err error
		result, err = s.quotations.SubmitTransition(ctx, actor, *sess.QuotationID, target)
		return err
	})
	if err != nil {
		if apperror.IsKind(err, apperror.KindInvalidTransition) || apperror.IsKind(err, apperror.KindAlreadyInTargetState) {
			s.resync(ctx, sess)
		}
		return nil, err
	}

	sess.ApplyStatus(result.Quotation.Status)
	s.publish(sess, EventTransitioned, result.Message, result.Outcome)
	return &TransitionView{Outcome: result.Outcome, Message: result.Message, Session: s.view(sess)}, nil
}

// Accept moves a draft to accepted
func (s *SessionService) Accept(ctx context.Context, actor entity.Actor, id uuid.UUID) (*TransitionView, error) {
	return s.Transition(ctx, actor, id, enum.QuotationStatusAccepted)
}

// Reject moves a draft to rejected
func (s *SessionService) Reject(ctx context.Context, actor entity.Actor, id uuid.UUID) (*TransitionView, error) {
	return s.Transition(ctx, actor, id, enum.QuotationStatusRejected)
}

// SendForReview submits an accepted, booked or rejected order for review
func (s *SessionService) SendForReview(ctx context.Context, actor entity.Actor, id uuid.UUID) (*TransitionView, error) {
	return s.Transition(ctx, actor, id, enum.QuotationStatusReview)
}

// Approve approves an order in review
func (s *SessionService) Approve(ctx context.Context, actor entity.Actor, id uuid.UUID) (*TransitionView, error) {
	return s.Transition(ctx, actor, id, enum.QuotationStatusApproved)
}

// RejectReview rejects an order in review
func (s *SessionService) RejectReview(ctx context.Context, actor entity.Actor, id uuid.UUID) (*TransitionView, error) {
	return s.Transition(ctx, actor, id, enum.QuotationStatusRejected)
}

// Confirm confirms an approved order
func (s *SessionService) Confirm(ctx context.Context, actor entity.Actor, id uuid.UUID) (*TransitionView, error) {
	return s.Transition(ctx, actor, id, enum.QuotationStatusConfirmed)
}

// DeleteQuotation deletes the rejected quotation behind the session and
// resets the session to an empty draft
func (s *SessionService) DeleteQuotation(ctx context.Context, actor entity.Actor, id uuid.UUID) (*SessionView, error) {
	return s.with(id, actor, func(sess *cart.Session) error {
		if sess.QuotationID == nil {
			return apperror.NewBadRequestError("Session has no saved quotation")
		}
		if err := workflow.EnsureDeletable(sess.Status, actor); err != nil {
			return err
		}
		var result *Result
		err := s.call(ctx, "Delete quotation", func(ctx context.Context) error {
			var err error
			result, err = s.quotations.DeleteQuotation(ctx, actor, *sess.QuotationID)
			return err
		})
		if err != nil {
			return err
		}
		s.publish(sess, EventDeleted, result.Message, nil)
		sess.Reset(sess.Currency.Active())
		return nil
	})
}

// InvoiceView is the result of issuing an invoice
type InvoiceView struct {
	Invoice *entity.Invoice `json:"invoice"`
	Message string          `json:"message"`
	Session *SessionView    `json:"session"`
}

// CreateInvoice issues the invoice of an approved or confirmed order
func (s *SessionService) CreateInvoice(ctx context.Context, actor entity.Actor, id uuid.UUID, fields InvoiceFields) (*InvoiceView, error) {
	var result *Result
	view, err := s.with(id, actor, func(sess *cart.Session) error {
		if sess.QuotationID == nil {
			return apperror.NewBadRequestError("Session has no saved quotation")
		}
		if err := workflow.EnsureInvoiceable(sess.Status, actor); err != nil {
			return err
		}
		err := s.call(ctx, "Create invoice", func(ctx context.Context) error {
			var err error
			result, err = s.quotations.CreateInvoice(ctx, actor, *sess.QuotationID, fields)
			return err
		})
		if err != nil {
			return err
		}
		s.publish(sess, EventInvoiced, result.Message, result.Invoice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceView{Invoice: result.Invoice, Message: result.Message, Session: view}, nil
}

// EvictIdle resets and drops sessions idle for longer than the configured
// TTL and returns how many were evicted. Sessions busy with an intent are
// skipped.
func (s *SessionService) EvictIdle() int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.opts.IdleTTL)

	s.mu.Lock()
	candidates := make([]*cart.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.Unlock()

	evicted := 0
	for _, sess := range candidates {
		sess.Lock()
		if sess.LastActive.Before(cutoff) {
			s.mu.Lock()
			if s.sessions[sess.ID] == sess {
				delete(s.sessions, sess.ID)
				evicted++
			}
			s.mu.Unlock()
			sess.Reset(s.opts.DefaultCurrency)
		}
		sess.Unlock()
	}
	if evicted > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}
