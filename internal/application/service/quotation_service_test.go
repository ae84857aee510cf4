package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/domain/pricing"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
)

func draftFor(t *testing.T, b *backend, codes ...string) *QuotationDraft {
	t.Helper()
	draft := &QuotationDraft{
		CustomerName:  "Walk-in",
		Currency:      "usd",
		Discount:      pricing.NoDiscount(),
		VATPercentage: d("5"),
	}
	for _, code := range codes {
		draft.Lines = append(draft.Lines, DraftLine{ProductID: b.productID(t, code), Quantity: 2, UnitPrice: d("10")})
	}
	return draft
}

func TestQuotationService_SaveQuotation(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	q, err := b.quotations.SaveQuotation(ctx, agent, draftFor(t, b, "TYR-MIC-PS5", "BRK-ATE-CR"))
	if err != nil {
		t.Fatalf("SaveQuotation() error = %v", err)
	}
	if q.Reference != "QT-000001" || q.Currency != "USD" || q.Status != enum.QuotationStatusDraft {
		t.Errorf("quotation = %s %s %v", q.Reference, q.Currency, q.Status)
	}
	if !q.Subtotal.Equal(d("40")) || !q.TotalAmount.Equal(d("42")) {
		t.Errorf("totals subtotal=%s total=%s", q.Subtotal, q.TotalAmount)
	}
	if len(q.StatusHistory) != 1 || q.CreatedBy != agent.ID {
		t.Errorf("history=%d created_by=%s", len(q.StatusHistory), q.CreatedBy)
	}

	update := draftFor(t, b, "OIL-CAS-EDGE")
	update.ID = &q.ID
	q, err = b.quotations.SaveQuotation(ctx, agent, update)
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Lines) != 1 || q.Lines[0].ProductCode != "OIL-CAS-EDGE" {
		t.Errorf("lines after update = %+v", q.Lines)
	}
}

func TestQuotationService_SaveQuotationValidation(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	tests := []struct {
		name   string
		mutate func(*QuotationDraft)
		want   error
	}{
		{"no lines", func(q *QuotationDraft) { q.Lines = nil }, apperror.ErrValidation},
		{"zero quantity", func(q *QuotationDraft) { q.Lines[0].Quantity = 0 }, apperror.ErrValidation},
		{"bad currency", func(q *QuotationDraft) { q.Currency = "DOLLARS" }, apperror.ErrValidation},
		{"negative discount", func(q *QuotationDraft) { q.Discount.Value = d("-1") }, apperror.ErrValidation},
		{"unknown product", func(q *QuotationDraft) { q.Lines[0].ProductID = uuid.New() }, apperror.ErrNotFound},
		{"unknown customer", func(q *QuotationDraft) { id := uuid.New(); q.CustomerID = &id }, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := draftFor(t, b, "BAT-BOS-S5")
			tt.mutate(draft)
			if _, err := b.quotations.SaveQuotation(ctx, agent, draft); !errors.Is(err, tt.want) {
				t.Errorf("SaveQuotation() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestQuotationService_SaveRejectedDuringReview(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	q, _ := b.quotations.SaveQuotation(ctx, agent, draftFor(t, b, "BAT-BOS-S5"))
	b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusAccepted)
	b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusReview)

	update := draftFor(t, b, "BAT-VAR-E44")
	update.ID = &q.ID
	if _, err := b.quotations.SaveQuotation(ctx, agent, update); !errors.Is(err, apperror.ErrCartLocked) {
		t.Errorf("SaveQuotation() in review error = %v", err)
	}
}

func TestQuotationService_SubmitTransition(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	q, err := b.quotations.SaveQuotation(ctx, agent, draftFor(t, b, "BRK-BOS-QC"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusAccepted)
	if err != nil {
		t.Fatal(err)
	}
	if res.Quotation.Status != enum.QuotationStatusAccepted || res.Message != "Quotation moved to Accepted" {
		t.Errorf("result = %v %q", res.Quotation.Status, res.Message)
	}

	if _, err := b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusAccepted); !errors.Is(err, apperror.ErrAlreadyInTargetState) {
		t.Errorf("repeat transition error = %v", err)
	}
	if _, err := b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusConfirmed); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Errorf("accepted to confirmed error = %v", err)
	}

	stored, _ := b.quotations.GetQuotation(ctx, q.ID)
	if stored.Status != enum.QuotationStatusAccepted || len(stored.StatusHistory) != 2 {
		t.Errorf("stored status=%v history=%d", stored.Status, len(stored.StatusHistory))
	}
}

func TestQuotationService_UpdateDiscount(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	q, _ := b.quotations.SaveQuotation(ctx, agent, draftFor(t, b, "BRK-BOS-QC", "BRK-ATE-CR"))

	res, err := b.quotations.UpdateDiscount(ctx, agent, q.ID, pricing.DiscountPolicy{Type: enum.DiscountTypePercentage, Value: d("250")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Quotation.TotalDiscount.Equal(d("40")) || !res.Quotation.TotalAmount.IsZero() {
		t.Errorf("discount=%s total=%s", res.Quotation.TotalDiscount, res.Quotation.TotalAmount)
	}

	b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusAccepted)
	b.quotations.SubmitTransition(ctx, agent, q.ID, enum.QuotationStatusReview)
	if _, err := b.quotations.UpdateDiscount(ctx, agent, q.ID, pricing.NoDiscount()); !errors.Is(err, apperror.ErrPermissionDenied) {
		t.Errorf("agent discount during review error = %v", err)
	}
	if _, err := b.quotations.UpdateDiscount(ctx, admin, q.ID, pricing.NoDiscount()); err != nil {
		t.Errorf("admin discount during review error = %v", err)
	}
}

func TestQuotationService_CreateInvoiceOnce(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	q, _ := b.quotations.SaveQuotation(ctx, agent, draftFor(t, b, "TYR-BRI-T005"))
	for _, st := range []enum.QuotationStatus{enum.QuotationStatusAccepted, enum.QuotationStatusReview, enum.QuotationStatusApproved} {
		actor := agent
		if st == enum.QuotationStatusApproved {
			actor = admin
		}
		if _, err := b.quotations.SubmitTransition(ctx, actor, q.ID, st); err != nil {
			t.Fatalf("transition to %v: %v", st, err)
		}
	}

	if _, err := b.quotations.CreateInvoice(ctx, agent, q.ID, InvoiceFields{}); !errors.Is(err, apperror.ErrPermissionDenied) {
		t.Errorf("agent invoice error = %v", err)
	}
	res, err := b.quotations.CreateInvoice(ctx, admin, q.ID, InvoiceFields{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.InvoiceNo != "INV-000001" || !res.Invoice.Amount.Equal(d("21")) {
		t.Errorf("invoice = %s %s", res.Invoice.InvoiceNo, res.Invoice.Amount)
	}
	if res.Invoice.DueDate.Before(fixed) {
		t.Errorf("due date %v precedes issue", res.Invoice.DueDate)
	}
	if _, err := b.quotations.CreateInvoice(ctx, admin, q.ID, InvoiceFields{}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second invoice error = %v", err)
	}
}

func TestQuotationService_ListScopesAgents(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	other := agent
	other.ID = uuid.New()
	b.quotations.SaveQuotation(ctx, agent, draftFor(t, b, "OIL-MOB-1"))
	b.quotations.SaveQuotation(ctx, other, draftFor(t, b, "OIL-MOB-1"))

	mine, err := b.quotations.ListQuotations(ctx, &ListQuotationsInput{Actor: agent})
	if err != nil {
		t.Fatal(err)
	}
	if mine.Pagination.Total != 1 {
		t.Errorf("agent sees %d quotations, want 1", mine.Pagination.Total)
	}
	all, err := b.quotations.ListQuotations(ctx, &ListQuotationsInput{Actor: admin})
	if err != nil {
		t.Fatal(err)
	}
	if all.Pagination.Total != 2 {
		t.Errorf("admin sees %d quotations, want 2", all.Pagination.Total)
	}
}
