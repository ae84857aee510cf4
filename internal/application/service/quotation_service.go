package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/domain/pricing"
	"github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/internal/domain/workflow"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
	"go.uber.org/zap"
)

// QuotationService is the system of record for quotations. It implements
// QuotationClient for in-process sessions.
type QuotationService struct {
	quotationRepo repository.QuotationRepository
	productRepo   repository.ProductRepository
	customerRepo  repository.CustomerRepository
	invoiceRepo   repository.InvoiceRepository
	machine       *workflow.Machine
	validityDays  int
	now           func() time.Time
	logger        *zap.Logger
}

// NewQuotationService creates a new quotation service
func NewQuotationService(
	quotationRepo repository.QuotationRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	invoiceRepo repository.InvoiceRepository,
	validityDays int,
	logger *zap.Logger,
) *QuotationService {
	if validityDays <= 0 {
		validityDays = 30
	}
	return &QuotationService{
		quotationRepo: quotationRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		invoiceRepo:   invoiceRepo,
		machine:       workflow.NewMachine(),
		validityDays:  validityDays,
		now:           time.Now,
		logger:        logger,
	}
}

// WithClock replaces the time source, used by tests
func (s *QuotationService) WithClock(now func() time.Time) *QuotationService {
	s.now = now
	s.machine = workflow.NewMachineWithClock(now)
	return s
}

var _ QuotationClient = (*QuotationService)(nil)

// GetQuotation retrieves a quotation by ID
func (s *QuotationService) GetQuotation(ctx context.Context, id uuid.UUID) (*entity.Quotation, error) {
	quotation, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if quotation == nil {
		return nil, apperror.NewNotFoundError("Quotation")
	}
	return quotation, nil
}

// ListQuotationsInput represents the input for listing quotations
type ListQuotationsInput struct {
	Actor      entity.Actor
	Pagination *pagination.PaginationParams
	Search     string
	Status     *enum.QuotationStatus
	CustomerID *uuid.UUID
	SortBy     string
	SortOrder  string
}

// ListQuotations lists quotations. Agents only see the quotations they created.
func (s *QuotationService) ListQuotations(ctx context.Context, input *ListQuotationsInput) (*pagination.PaginatedResult[entity.Quotation], error) {
	if input.Pagination == nil {
		input.Pagination = pagination.DefaultPagination()
	}
	input.Pagination.Validate()

	params := &repository.QuotationFilterParams{
		Pagination: input.Pagination,
		Search:     input.Search,
		Status:     input.Status,
		CustomerID: input.CustomerID,
		SortBy:     input.SortBy,
		SortOrder:  input.SortOrder,
	}
	if !input.Actor.IsAdmin() {
		id := input.Actor.ID
		params.CreatedBy = &id
	}

	quotations, total, err := s.quotationRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}

	pag := pagination.NewPagination(input.Pagination.Page, input.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(quotations, pag), nil
}

// History returns the status history of a quotation, oldest first
func (s *QuotationService) History(ctx context.Context, id uuid.UUID) ([]entity.StatusHistoryEntry, error) {
	if _, err := s.GetQuotation(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.quotationRepo.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("quotation history: %w", err)
	}
	return history, nil
}

func (s *QuotationService) validateDraft(draft *QuotationDraft) error {
	var fieldErrors []apperror.FieldError
	if err := cart.ValidateCurrency(draft.Currency); err != nil {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "currency", Message: "must be a 3 letter code"})
	}
	if len(draft.Lines) == 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "lines", Message: "at least one item must be selected"})
	}
	for i, line := range draft.Lines {
		if line.Quantity < 1 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("lines[%d].quantity", i), Message: "must be at least 1"})
		}
		if line.UnitPrice.IsNegative() {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("lines[%d].unit_price", i), Message: "must not be negative"})
		}
	}
	if draft.VATPercentage.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "vat_percentage", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return draft.Discount.Validate()
}

func (s *QuotationService) buildLines(ctx context.Context, draft *QuotationDraft) ([]entity.QuotationLine, error) {
	ids := make([]uuid.UUID, len(draft.Lines))
	for i, l := range draft.Lines {
		ids[i] = l.ProductID
	}
	products, err := s.productRepo.GetByIDs(ctx, ids, draft.Currency)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]entity.QuotationLine, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		product, ok := byID[l.ProductID]
		if !ok {
			return nil, apperror.NewNotFoundError("Product " + l.ProductID.String())
		}
		line := pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
		lines = append(lines, entity.QuotationLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			ProductCode: product.Code,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  line.Total(),
		})
	}
	return lines, nil
}

func applyTotals(q *entity.Quotation) {
	lines := make([]pricing.Line, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	totals := pricing.Compute(lines, pricing.DiscountPolicy{Type: q.DiscountType, Value: q.DiscountValue}, q.VATPercentage)
	q.Subtotal = totals.Subtotal
	q.TotalDiscount = totals.DiscountAmount
	q.VATAmount = totals.VATAmount
	q.TotalAmount = totals.TotalAmount
}

// SaveQuotation creates a draft quotation or replaces the lines of an
// editable one
func (s *QuotationService) SaveQuotation(ctx context.Context, actor entity.Actor, draft *QuotationDraft) (*entity.Quotation, error) {
	draft.Currency = cart.NormalizeCurrency(draft.Currency)
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	customerName := draft.CustomerName
	if draft.CustomerID != nil {
		customer, err := s.customerRepo.GetByID(ctx, *draft.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("load customer: %w", err)
		}
		if customer == nil {
			return nil, apperror.NewNotFoundError("Customer")
		}
		customerName = customer.Name
	}

	lines, err := s.buildLines(ctx, draft)
	if err != nil {
		return nil, err
	}

	if draft.ID == nil {
		return s.createQuotation(ctx, actor, draft, customerName, lines)
	}

	quotation, err := s.GetQuotation(ctx, *draft.ID)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureLinesEditable(quotation.Status); err != nil {
		return nil, err
	}

	quotation.CustomerID = draft.CustomerID
	quotation.CustomerName = customerName
	quotation.Currency = draft.Currency
	quotation.DiscountType = draft.Discount.Type
	quotation.DiscountValue = draft.Discount.Value
	quotation.VATPercentage = draft.VATPercentage
	quotation.Note = draft.Note
	quotation.UpdatedBy = actor.IDPtr()
	quotation.Lines = lines
	applyTotals(quotation)

	saved, err := s.quotationRepo.Update(ctx, quotation)
	if err != nil {
		return nil, fmt.Errorf("update quotation: %w", err)
	}
	if !saved {
		current, err := s.GetQuotation(ctx, quotation.ID)
		if err != nil {
			return nil, err
		}
		return nil, apperror.NewCartLockedError(current.Status.String())
	}
	return s.GetQuotation(ctx, quotation.ID)
}

func (s *QuotationService) createQuotation(ctx context.Context, actor entity.Actor, draft *QuotationDraft, customerName string, lines []entity.QuotationLine) (*entity.Quotation, error) {
	nextNum, err := s.quotationRepo.GetNextReferenceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next reference: %w", err)
	}

	now := s.now().UTC()
	quotation := &entity.Quotation{
		ID:            uuid.New(),
		Reference:     fmt.Sprintf("QT-%06d", nextNum),
		CustomerID:    draft.CustomerID,
		CustomerName:  customerName,
		Currency:      draft.Currency,
		DiscountType:  draft.Discount.Type,
		DiscountValue: draft.Discount.Value,
		VATPercentage: draft.VATPercentage,
		CreatedBy:     actor.ID,
		ValidTill:     now.AddDate(0, 0, s.validityDays),
		Note:          draft.Note,
		Lines:         lines,
	}
	quotation.RecordStatus(enum.QuotationStatusDraft, enum.ReviewReasonNone, actor.IDPtr(), now)
	applyTotals(quotation)

	if err := s.quotationRepo.Create(ctx, quotation); err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}
	s.logger.Info("quotation created",
		zap.String("reference", quotation.Reference),
		zap.String("currency", quotation.Currency),
		zap.Stringer("actor", actor.ID))
	return s.GetQuotation(ctx, quotation.ID)
}

// SubmitTransition validates and commits a status transition. The stored
// status is compared on write so two concurrent transitions from the same
// status cannot both succeed.
func (s *QuotationService) SubmitTransition(ctx context.Context, actor entity.Actor, id uuid.UUID, target enum.QuotationStatus) (*TransitionResult, error) {
	quotation, err := s.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}

	outcome, err := s.machine.Plan(quotation.Status, target, actor)
	if err != nil {
		return nil, err
	}
	entry, err := s.machine.Commit(quotation, outcome, actor)
	if err != nil {
		return nil, err
	}

	moved, err := s.quotationRepo.UpdateStatus(ctx, id, outcome.From, &entry)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !moved {
		current, err := s.GetQuotation(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == outcome.To {
			return nil, apperror.NewAlreadyInTargetStateError(current.Status.String())
		}
		return nil, apperror.NewInvalidTransitionError(current.Status.String(), outcome.To.String())
	}

	s.logger.Info("quotation transitioned",
		zap.String("reference", quotation.Reference),
		zap.String("from", outcome.From.String()),
		zap.String("to", outcome.To.String()),
		zap.String("reason", string(outcome.ReviewReason)),
		zap.Stringer("actor", actor.ID))

	return &TransitionResult{
		Quotation: quotation,
		Outcome:   outcome,
		Message:   outcome.Message(),
	}, nil
}

// UpdateDiscount changes the discount and recomputes the persisted totals
func (s *QuotationService) UpdateDiscount(ctx context.Context, actor entity.Actor, id uuid.UUID, policy pricing.DiscountPolicy) (*Result, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	quotation, err := s.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureDiscountEditable(quotation.Status, actor); err != nil {
		return nil, err
	}

	quotation.DiscountType = policy.Type
	quotation.DiscountValue = policy.Value
	quotation.UpdatedBy = actor.IDPtr()
	applyTotals(quotation)

	if err := s.quotationRepo.UpdateDiscount(ctx, quotation); err != nil {
		return nil, fmt.Errorf("update discount: %w", err)
	}
	return &Result{Message: "Discount updated", Quotation: quotation}, nil
}

// DeleteQuotation removes a rejected quotation
func (s *QuotationService) DeleteQuotation(ctx context.Context, actor entity.Actor, id uuid.UUID) (*Result, error) {
	quotation, err := s.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureDeletable(quotation.Status, actor); err != nil {
		return nil, err
	}
	if err := s.quotationRepo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete quotation: %w", err)
	}
	s.logger.Info("quotation deleted", zap.String("reference", quotation.Reference), zap.Stringer("actor", actor.ID))
	return &Result{Message: "Quotation " + quotation.Reference + " deleted"}, nil
}

// CreateInvoice issues the invoice of an approved or confirmed order. An
// order is invoiced at most once.
func (s *QuotationService) CreateInvoice(ctx context.Context, actor entity.Actor, id uuid.UUID, fields InvoiceFields) (*Result, error) {
	quotation, err := s.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.EnsureInvoiceable(quotation.Status, actor); err != nil {
		return nil, err
	}

	existing, err := s.invoiceRepo.GetByQuotationID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if existing != nil {
		return nil, apperror.NewConflictError("An invoice already exists for " + quotation.Reference)
	}

	nextNum, err := s.invoiceRepo.GetNextInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next invoice number: %w", err)
	}
	due := s.now().UTC().AddDate(0, 0, s.validityDays)
	if fields.DueDate != nil {
		due = fields.DueDate.UTC()
	}

	invoice := &entity.Invoice{
		QuotationID: quotation.ID,
		InvoiceNo:   fmt.Sprintf("INV-%06d", nextNum),
		Currency:    quotation.Currency,
		Amount:      quotation.TotalAmount,
		DueDate:     due,
		Notes:       fields.Notes,
		IssuedBy:    actor.ID,
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("invoice", invoice.InvoiceNo),
		zap.String("reference", quotation.Reference),
		zap.String("amount", invoice.Amount.StringFixed(2)))
	return &Result{Message: "Invoice " + invoice.InvoiceNo + " created", Quotation: quotation, Invoice: invoice}, nil
}
