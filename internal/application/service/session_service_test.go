package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/domain/pricing"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openLoaded(t *testing.T, svc *SessionService, actor entity.Actor) *SessionView {
	t.Helper()
	ctx := context.Background()
	view, err := svc.Open(ctx, actor, OpenInput{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	view, err = svc.LoadCatalog(ctx, actor, view.ID)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	return view
}

func TestSessionService_TotalsIncludeHiddenLines(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)
	a, b := fc.item("USD", "A"), fc.item("USD", "B")

	if _, err := svc.Select(ctx, agent, view.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AdjustQuantity(ctx, agent, view.ID, a.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Select(ctx, agent, view.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetDiscount(ctx, agent, view.ID, pricing.DiscountPolicy{Type: enum.DiscountTypePercentage, Value: d("10")}); err != nil {
		t.Fatal(err)
	}
	view, err := svc.SetCategory(ctx, agent, view.ID, "wheels")
	if err != nil {
		t.Fatal(err)
	}

	if !view.Totals.Subtotal.Equal(d("350")) || !view.Totals.DiscountAmount.Equal(d("35")) || !view.Totals.FinalTotal.Equal(d("315")) {
		t.Errorf("totals = %+v, want 350 / 35 / 315", view.Totals)
	}
	if view.HiddenCount != 1 {
		t.Errorf("HiddenCount = %d, want 1", view.HiddenCount)
	}
	if len(view.Items) != 1 || !view.Items[0].Selected || view.Items[0].Quantity != 3 {
		t.Errorf("visible rows = %+v", view.Items)
	}
}

func TestSessionService_AdjustQuantityNeverBelowOne(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)
	a := fc.item("USD", "A")

	if _, err := svc.Select(ctx, agent, view.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	view, err := svc.AdjustQuantity(ctx, agent, view.ID, a.ID, -1000)
	if err != nil {
		t.Fatal(err)
	}
	if view.Lines[0].Quantity != 1 {
		t.Errorf("quantity = %d, want 1", view.Lines[0].Quantity)
	}
}

func TestSessionService_CurrencyChangeWithItems(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	notifier := &recordingNotifier{}
	svc := fakeSessions(fc, notifier)
	view := openLoaded(t, svc, agent)
	a, b := fc.item("USD", "A"), fc.item("USD", "B")
	svc.Select(ctx, agent, view.ID, a.ID)
	svc.Select(ctx, agent, view.ID, b.ID)

	res, err := svc.RequestCurrencyChange(ctx, agent, view.ID, "aed")
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != cart.DecisionStaged || res.Pending == nil || res.Pending.ProposedCurrency != "AED" {
		t.Fatalf("RequestCurrencyChange() = %+v", res)
	}
	if res.Session.Currency != "USD" || res.Session.DisplayedCurrency != "AED" {
		t.Errorf("active=%s displayed=%s", res.Session.Currency, res.Session.DisplayedCurrency)
	}
	if got := notifier.last().Type; got != EventAwaitingConfirmation {
		t.Errorf("last event = %s", got)
	}

	_, err = svc.Select(ctx, agent, view.ID, fc.item("USD", "C").ID)
	if !errors.Is(err, apperror.ErrStaleCurrencyState) {
		t.Fatalf("Select() during pending change: %v", err)
	}
	if pending, ok := apperror.GetAppError(err).Data.(*cart.CurrencyChangeRequest); !ok || pending.ProposedCurrency != "AED" {
		t.Errorf("stale error should carry the pending request, got %v", apperror.GetAppError(err).Data)
	}
	if _, err := svc.SetCategory(ctx, agent, view.ID, "brakes"); !errors.Is(err, apperror.ErrStaleCurrencyState) {
		t.Errorf("SetCategory() during pending change: %v", err)
	}

	res, err = svc.CancelPending(ctx, agent, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.DisplayedCurrency != "USD" || len(res.Session.Lines) != 2 || res.Session.Pending != nil {
		t.Errorf("after cancel: %+v", res.Session)
	}

	if _, err := svc.RequestCurrencyChange(ctx, agent, view.ID, "AED"); err != nil {
		t.Fatal(err)
	}
	res, err = svc.ConfirmPending(ctx, agent, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	s := res.Session
	if s.Currency != "AED" || len(s.Lines) != 0 || !s.Totals.Subtotal.IsZero() {
		t.Errorf("after confirm: currency=%s lines=%d subtotal=%s", s.Currency, len(s.Lines), s.Totals.Subtotal)
	}
	if len(s.Items) != 3 || s.Items[0].Currency != "AED" {
		t.Errorf("catalog should be refetched in AED, got %+v", s.Items)
	}
	if got := notifier.last().Type; got != EventCurrencyApplied {
		t.Errorf("last event = %s", got)
	}
}

func TestSessionService_CurrencyChangeOnEmptyCartApplies(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)

	res, err := svc.RequestCurrencyChange(ctx, agent, view.ID, "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != cart.DecisionApplied || res.Session.Currency != "EUR" {
		t.Fatalf("RequestCurrencyChange() = %+v", res)
	}
	if !res.Session.Items[0].UnitPrice.Equal(d("90")) {
		t.Errorf("item priced %s, want 90 EUR", res.Session.Items[0].UnitPrice)
	}

	res, err = svc.RequestCurrencyChange(ctx, agent, view.ID, "EUR")
	if err != nil || res.Decision != cart.DecisionNoChange {
		t.Errorf("same currency: %+v %v", res, err)
	}
	if _, err := svc.RequestCurrencyChange(ctx, agent, view.ID, "GBP"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unsupported currency: %v", err)
	}
}

func TestSessionService_RefreshWithItemsClearsCartOnConfirm(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)
	svc.Select(ctx, agent, view.ID, fc.item("USD", "A").ID)

	res, err := svc.RequestRefresh(ctx, agent, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != cart.DecisionStaged || res.Pending.Kind != cart.ChangeKindRefresh {
		t.Fatalf("RequestRefresh() = %+v", res)
	}
	res, err = svc.ConfirmPending(ctx, agent, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.Currency != "USD" || len(res.Session.Lines) != 0 {
		t.Errorf("after refresh: %+v", res.Session)
	}
}

func TestSessionService_CollaboratorFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("timeout", func(t *testing.T) {
		fc := newFakeCatalog()
		svc := fakeSessions(fc, nil)
		view, _ := svc.Open(ctx, agent, OpenInput{})
		fc.set(nil, true)

		_, err := svc.LoadCatalog(ctx, agent, view.ID)
		if !errors.Is(err, apperror.ErrTimeout) || !apperror.GetAppError(err).Retryable {
			t.Fatalf("LoadCatalog() error = %v, want retryable timeout", err)
		}
	})

	t.Run("network", func(t *testing.T) {
		fc := newFakeCatalog()
		svc := fakeSessions(fc, nil)
		view, _ := svc.Open(ctx, agent, OpenInput{})
		fc.set(errors.New("connection reset by peer"), false)

		_, err := svc.LoadCatalog(ctx, agent, view.ID)
		if !errors.Is(err, apperror.ErrNetwork) || !apperror.GetAppError(err).Retryable {
			t.Fatalf("LoadCatalog() error = %v, want retryable network error", err)
		}

		fc.set(nil, false)
		view, err = svc.LoadCatalog(ctx, agent, view.ID)
		if err != nil || len(view.Items) != 3 {
			t.Errorf("retry: items=%d err=%v", len(view.Items), err)
		}
	})

	t.Run("applied currency survives a failed reload", func(t *testing.T) {
		fc := newFakeCatalog()
		svc := fakeSessions(fc, nil)
		view, _ := svc.Open(ctx, agent, OpenInput{})
		fc.set(errors.New("connection reset by peer"), false)

		res, err := svc.RequestCurrencyChange(ctx, agent, view.ID, "AED")
		if err != nil {
			t.Fatalf("RequestCurrencyChange() error = %v", err)
		}
		if res.Decision != cart.DecisionApplied || res.Session.Currency != "AED" {
			t.Fatalf("result = %+v", res)
		}
		if res.CatalogError == nil || !res.CatalogError.Retryable {
			t.Fatalf("CatalogError = %+v, want retryable", res.CatalogError)
		}

		fc.set(nil, false)
		view, err = svc.LoadCatalog(ctx, agent, view.ID)
		if err != nil {
			t.Fatalf("LoadCatalog() error = %v", err)
		}
		if view.Currency != "AED" || len(view.Items) != 3 {
			t.Errorf("reload: currency=%s items=%d", view.Currency, len(view.Items))
		}
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		fc := newFakeCatalog()
		svc := fakeSessions(fc, nil)
		view, _ := svc.Open(ctx, agent, OpenInput{})
		fc.set(apperror.NewFieldValidationError("year", "must be a number"), false)

		_, err := svc.LoadCatalog(ctx, agent, view.ID)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("LoadCatalog() error = %v, want validation", err)
		}
	})
}

func TestSessionService_SupersededFetchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)

	gate := make(chan struct{})
	fc.gates = map[string]chan struct{}{"wheels": gate}

	type result struct {
		view *SessionView
		err  error
	}
	first := make(chan result, 1)
	go func() {
		v, err := svc.SetCategory(ctx, agent, view.ID, "wheels")
		first <- result{v, err}
	}()
	<-fc.entered

	latest, err := svc.SetCategory(ctx, agent, view.ID, "brakes")
	if err != nil {
		t.Fatal(err)
	}
	close(gate)

	r := <-first
	if r.err != nil {
		t.Fatal(r.err)
	}
	if !r.view.Stale {
		t.Error("superseded response should be reported stale")
	}
	for _, row := range r.view.Items {
		if row.Category != "brakes" {
			t.Errorf("stale wheels row %s replaced the latest page", row.Code)
		}
	}
	if latest.Filters.Category != "brakes" || len(latest.Items) != 2 {
		t.Errorf("latest page = %+v", latest.Items)
	}
}

func TestSessionService_SearchHidesPagination(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)

	view, err := svc.SetSearch(ctx, agent, view.ID, "brake")
	if err != nil {
		t.Fatal(err)
	}
	if view.PaginationVisible || len(view.Items) != 2 {
		t.Errorf("search: visible=%v items=%d", view.PaginationVisible, len(view.Items))
	}
	view, err = svc.SetSearch(ctx, agent, view.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if !view.PaginationVisible || view.Cursor.Page != 1 || len(view.Items) != 3 {
		t.Errorf("leaving search: %+v", view.Cursor)
	}
}

func TestSessionService_SetLimit(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)

	fc.mu.Lock()
	calls := fc.calls
	fc.mu.Unlock()
	view, err := svc.SetLimit(ctx, agent, view.ID, 7)
	if err != nil {
		t.Fatalf("SetLimit(7) error = %v, want ignored", err)
	}
	fc.mu.Lock()
	refetched := fc.calls != calls
	fc.mu.Unlock()
	if view.Cursor.Limit != 10 || refetched {
		t.Errorf("SetLimit(7): limit=%d refetched=%v", view.Cursor.Limit, refetched)
	}

	view, err = svc.SetLimit(ctx, agent, view.ID, 25)
	if err != nil {
		t.Fatal(err)
	}
	if view.Cursor.Limit != 25 || view.Cursor.Page != 1 {
		t.Errorf("SetLimit(25): limit=%d page=%d", view.Cursor.Limit, view.Cursor.Page)
	}
}

func TestSessionService_SetFacetRequiresCategory(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCatalog()
	svc := fakeSessions(fc, nil)
	view := openLoaded(t, svc, agent)

	if _, err := svc.SetFacet(ctx, agent, view.ID, cart.FacetBrand, "Bosch"); err == nil {
		t.Error("brand without category should fail")
	}
	svc.SetCategory(ctx, agent, view.ID, "brakes")
	view, err := svc.SetFacet(ctx, agent, view.ID, cart.FacetBrand, "Bosch")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 1 || view.Items[0].Code != "B" {
		t.Errorf("items = %+v", view.Items)
	}
	view, err = svc.SetCategory(ctx, agent, view.ID, "wheels")
	if err != nil {
		t.Fatal(err)
	}
	if view.Filters.Brand != "" {
		t.Errorf("category change should clear brand, got %q", view.Filters.Brand)
	}
}

func TestSessionService_SessionsBelongToTheirActor(t *testing.T) {
	ctx := context.Background()
	svc := fakeSessions(newFakeCatalog(), nil)
	view, _ := svc.Open(ctx, agent, OpenInput{})

	if _, err := svc.View(ctx, admin, view.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("foreign View() error = %v", err)
	}
	if err := svc.Close(ctx, agent, view.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.View(ctx, agent, view.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("View() after Close error = %v", err)
	}
}

func TestSessionService_EvictIdle(t *testing.T) {
	ctx := context.Background()
	now := fixed
	svc := fakeSessions(newFakeCatalog(), nil).WithClock(func() time.Time { return now })
	idle, _ := svc.Open(ctx, agent, OpenInput{})
	busy, _ := svc.Open(ctx, agent, OpenInput{})

	now = now.Add(50 * time.Minute)
	svc.View(ctx, agent, busy.ID)
	now = now.Add(20 * time.Minute)

	if got := svc.EvictIdle(); got != 1 {
		t.Fatalf("EvictIdle() = %d, want 1", got)
	}
	if _, err := svc.View(ctx, agent, idle.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("idle session should be gone, got %v", err)
	}
	if svc.Count() != 1 {
		t.Errorf("Count() = %d, want 1", svc.Count())
	}
}

func TestSessionService_SelectUnknownItem(t *testing.T) {
	ctx := context.Background()
	svc := fakeSessions(newFakeCatalog(), nil)
	view := openLoaded(t, svc, agent)

	if _, err := svc.Select(ctx, agent, view.ID, uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Select() error = %v", err)
	}
}

func TestSessionService_RejectedQuotationWorkflow(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	notifier := &recordingNotifier{}
	svc := b.sessions(notifier)

	view := openLoaded(t, svc, agent)
	pads := b.productID(t, "BRK-BOS-QC")
	disc := b.productID(t, "BRK-BRE-GT")
	svc.Select(ctx, agent, view.ID, pads)
	svc.SetQuantity(ctx, agent, view.ID, pads, 4)
	svc.Select(ctx, agent, view.ID, disc)

	if _, err := svc.Transition(ctx, agent, view.ID, enum.QuotationStatusAccepted); !errors.Is(err, apperror.ErrBadRequest) {
		t.Errorf("transition before save: %v", err)
	}

	view, err := svc.SaveQuotation(ctx, agent, view.ID, SaveInput{CustomerName: "Walk-in"})
	if err != nil {
		t.Fatalf("SaveQuotation() error = %v", err)
	}
	if view.QuotationID == nil || view.Reference != "QT-000001" || view.Status != enum.QuotationStatusDraft {
		t.Fatalf("saved view = %+v", view)
	}

	tr, err := svc.Reject(ctx, agent, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Session.Status != enum.QuotationStatusRejected {
		t.Errorf("status = %v", tr.Session.Status)
	}

	tr, err = svc.SendForReview(ctx, agent, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Outcome.ReviewReason != enum.ReviewReasonReapproval || tr.Message != "Order sent for reapproval" {
		t.Errorf("outcome = %+v message = %q", tr.Outcome, tr.Message)
	}
	if _, err := svc.Select(ctx, agent, view.ID, b.productID(t, "BAT-BOS-S5")); !errors.Is(err, apperror.ErrCartLocked) {
		t.Errorf("Select() during review: %v", err)
	}
	if _, err := svc.Approve(ctx, agent, view.ID); !errors.Is(err, apperror.ErrPermissionDenied) {
		t.Errorf("agent Approve(): %v", err)
	}

	review, err := svc.Open(ctx, admin, OpenInput{QuotationID: view.QuotationID})
	if err != nil {
		t.Fatal(err)
	}
	if review.Status != enum.QuotationStatusReview || len(review.Lines) != 2 {
		t.Fatalf("admin view = %+v", review)
	}
	if _, err := svc.SetDiscount(ctx, admin, review.ID, pricing.DiscountPolicy{Type: enum.DiscountTypeAmount, Value: d("20")}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveDiscount(ctx, admin, review.ID); err != nil {
		t.Fatalf("SaveDiscount() during review: %v", err)
	}
	if _, err := svc.Approve(ctx, admin, review.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Confirm(ctx, admin, review.ID); err != nil {
		t.Fatal(err)
	}
	inv, err := svc.CreateInvoice(ctx, admin, review.ID, InvoiceFields{})
	if err != nil {
		t.Fatal(err)
	}
	// 4 × 45 + 310 = 490, less 20 = 470, plus 5% VAT = 493.50
	if inv.Invoice.InvoiceNo != "INV-000001" || !inv.Invoice.Amount.Equal(d("493.5")) {
		t.Errorf("invoice = %s %s", inv.Invoice.InvoiceNo, inv.Invoice.Amount)
	}

	history, err := b.quotations.History(ctx, *view.QuotationID)
	if err != nil {
		t.Fatal(err)
	}
	want := []enum.QuotationStatus{
		enum.QuotationStatusDraft, enum.QuotationStatusRejected, enum.QuotationStatusReview,
		enum.QuotationStatusApproved, enum.QuotationStatusConfirmed,
	}
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d", len(history), len(want))
	}
	for i, h := range history {
		if h.Status != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, h.Status, want[i])
		}
	}

	types := notifier.types()
	if len(types) == 0 || types[len(types)-1] != EventInvoiced {
		t.Errorf("events = %v", types)
	}
}

func TestSessionService_ReopenedQuotationKeepsSavedPrices(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	svc := b.sessions(nil)

	view := openLoaded(t, svc, agent)
	pads := b.productID(t, "BRK-BOS-QC")
	if _, err := svc.Select(ctx, agent, view.ID, pads); err != nil {
		t.Fatal(err)
	}
	view, err := svc.SaveQuotation(ctx, agent, view.ID, SaveInput{CustomerName: "Walk-in"})
	if err != nil {
		t.Fatal(err)
	}
	if !view.Totals.Subtotal.Equal(d("45")) {
		t.Fatalf("saved subtotal = %s, want 45", view.Totals.Subtotal)
	}

	if err := b.db.Model(&entity.ProductPrice{}).
		Where("product_id = ? AND currency = ?", pads, "USD").
		Update("unit_price", d("999")).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reject(ctx, agent, view.ID); err != nil {
		t.Fatal(err)
	}

	reopened := openQuotation(t, svc, agent, view.QuotationID)
	if !reopened.Totals.Subtotal.Equal(d("45")) {
		t.Errorf("reopened subtotal = %s, want the saved 45", reopened.Totals.Subtotal)
	}
	if _, err := svc.SaveQuotation(ctx, agent, reopened.ID, SaveInput{CustomerName: "Walk-in"}); err != nil {
		t.Fatal(err)
	}
	saved, err := b.quotations.GetQuotation(ctx, *view.QuotationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Lines) != 1 || !saved.Lines[0].UnitPrice.Equal(d("45")) {
		t.Errorf("re-saved lines = %+v, want unit price 45", saved.Lines)
	}

	other := entity.Actor{ID: uuid.New(), Roles: []string{entity.RoleAgent}}
	if _, err := svc.Open(ctx, other, OpenInput{QuotationID: view.QuotationID}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Open() by another agent: %v, want not found", err)
	}

	if _, err := svc.SendForReview(ctx, agent, reopened.ID); err != nil {
		t.Fatal(err)
	}
	review := openQuotation(t, svc, admin, view.QuotationID)
	if review.Status != enum.QuotationStatusReview {
		t.Fatalf("status = %v, want review", review.Status)
	}
	persisted, err := b.quotations.GetQuotation(ctx, *view.QuotationID)
	if err != nil {
		t.Fatal(err)
	}
	if !review.Totals.Subtotal.Equal(persisted.Subtotal) || !review.Totals.TotalAmount.Equal(persisted.TotalAmount) {
		t.Errorf("review totals %s/%s differ from persisted %s/%s",
			review.Totals.Subtotal, review.Totals.TotalAmount, persisted.Subtotal, persisted.TotalAmount)
	}
}

func openQuotation(t *testing.T, svc *SessionService, actor entity.Actor, id *uuid.UUID) *SessionView {
	t.Helper()
	ctx := context.Background()
	view, err := svc.Open(ctx, actor, OpenInput{QuotationID: id})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	view, err = svc.LoadCatalog(ctx, actor, view.ID)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	return view
}

func TestSessionService_StaleSessionResyncsStatus(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	svc := b.sessions(nil)

	view := openLoaded(t, svc, agent)
	svc.Select(ctx, agent, view.ID, b.productID(t, "TYR-MIC-PS5"))
	view, err := svc.SaveQuotation(ctx, agent, view.ID, SaveInput{CustomerName: "Fleet"})
	if err != nil {
		t.Fatal(err)
	}

	other, err := svc.Open(ctx, agent, OpenInput{QuotationID: view.QuotationID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, agent, other.ID); err != nil {
		t.Fatal(err)
	}

	_, err = svc.Reject(ctx, agent, view.ID)
	if !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("Reject() on moved quotation: %v", err)
	}
	view, _ = svc.View(ctx, agent, view.ID)
	if view.Status != enum.QuotationStatusAccepted {
		t.Errorf("status after resync = %v, want accepted", view.Status)
	}
}

func TestSessionService_FailedTransitionKeepsStatus(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	flaky := &failingQuotations{QuotationClient: b.quotations}
	svc := NewSessionService(b.catalog, flaky, b.catalog, nil, SessionOptions{DefaultCurrency: "USD"}, b.quotations.logger).WithClock(clock)

	view := openLoaded(t, svc, agent)
	svc.Select(ctx, agent, view.ID, b.productID(t, "OIL-MOB-1"))
	view, err := svc.SaveQuotation(ctx, agent, view.ID, SaveInput{CustomerName: "Garage"})
	if err != nil {
		t.Fatal(err)
	}

	flaky.transitionErr = errors.New("dial tcp: connection refused")
	if _, err := svc.Accept(ctx, agent, view.ID); !errors.Is(err, apperror.ErrNetwork) {
		t.Fatalf("Accept() error = %v", err)
	}
	view, _ = svc.View(ctx, agent, view.ID)
	if view.Status != enum.QuotationStatusDraft {
		t.Errorf("status = %v, want draft", view.Status)
	}

	flaky.transitionErr = nil
	if _, err := svc.Accept(ctx, agent, view.ID); err != nil {
		t.Errorf("retry Accept() error = %v", err)
	}
}

func TestSessionService_DeleteRejectedResetsSession(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	svc := b.sessions(nil)

	view := openLoaded(t, svc, admin)
	svc.Select(ctx, admin, view.ID, b.productID(t, "BAT-VAR-E44"))
	view, err := svc.SaveQuotation(ctx, admin, view.ID, SaveInput{CustomerName: "Depot"})
	if err != nil {
		t.Fatal(err)
	}
	qid := *view.QuotationID

	if _, err := svc.DeleteQuotation(ctx, admin, view.ID); err == nil {
		t.Error("draft must not be deletable")
	}
	if _, err := svc.Reject(ctx, admin, view.ID); err != nil {
		t.Fatal(err)
	}
	view, err = svc.DeleteQuotation(ctx, admin, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.QuotationID != nil || len(view.Lines) != 0 || view.Status != enum.QuotationStatusDraft {
		t.Errorf("session after delete = %+v", view)
	}
	if _, err := b.quotations.GetQuotation(ctx, qid); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted quotation still loads: %v", err)
	}
}
