// Package workflow owns the quotation/order lifecycle: which status edges
// exist, who may take them, and which cart edits each status allows.
package workflow

import (
	"time"

	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
)

// Action is a user facing operation on a quotation
type Action string

const (
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionSendForReview Action = "send_for_review"
	ActionApprove       Action = "approve"
	ActionRejectReview  Action = "reject_review"
	ActionConfirm       Action = "confirm"
	ActionEditLines     Action = "edit_lines"
	ActionEditDiscount  Action = "edit_discount"
	ActionDelete        Action = "delete"
	ActionInvoice       Action = "invoice"
)

type edge struct {
	from      enum.QuotationStatus
	to        enum.QuotationStatus
	action    Action
	adminOnly bool
	reason    enum.ReviewReason
}

// booked behaves like accepted for transition purposes
var edges = []edge{
	{from: enum.QuotationStatusDraft, to: enum.QuotationStatusAccepted, action: ActionAccept},
	{from: enum.QuotationStatusDraft, to: enum.QuotationStatusRejected, action: ActionReject},
	{from: enum.QuotationStatusAccepted, to: enum.QuotationStatusReview, action: ActionSendForReview, reason: enum.ReviewReasonInitial},
	{from: enum.QuotationStatusBooked, to: enum.QuotationStatusReview, action: ActionSendForReview, reason: enum.ReviewReasonInitial},
	{from: enum.QuotationStatusRejected, to: enum.QuotationStatusReview, action: ActionSendForReview, reason: enum.ReviewReasonReapproval},
	{from: enum.QuotationStatusReview, to: enum.QuotationStatusApproved, action: ActionApprove, adminOnly: true},
	{from: enum.QuotationStatusReview, to: enum.QuotationStatusRejected, action: ActionRejectReview, adminOnly: true},
	{from: enum.QuotationStatusApproved, to: enum.QuotationStatusConfirmed, action: ActionConfirm, adminOnly: true},
}

var lineEditable = map[enum.QuotationStatus]bool{
	enum.QuotationStatusDraft:    true,
	enum.QuotationStatusAccepted: true,
	enum.QuotationStatusRejected: true,
	enum.QuotationStatusBooked:   true,
}

// Outcome describes a validated transition
type Outcome struct {
	From         enum.QuotationStatus `json:"from"`
	To           enum.QuotationStatus `json:"to"`
	Action       Action               `json:"action"`
	ReviewReason enum.ReviewReason    `json:"review_reason,omitempty"`
}

// Message returns the caller facing summary of the outcome. A rejected order
// sent back to review reads as a reapproval even though the status is the
// same one an accepted order reaches.
func (o Outcome) Message() string {
	if o.ReviewReason != enum.ReviewReasonNone {
		return "Order " + o.ReviewReason.Label()
	}
	return "Quotation moved to " + o.To.DisplayName()
}

// Machine validates and applies status transitions
type Machine struct {
	now func() time.Time
}

// NewMachine creates a status machine using the wall clock
func NewMachine() *Machine {
	return &Machine{now: time.Now}
}

// NewMachineWithClock creates a status machine with a fixed time source
func NewMachineWithClock(now func() time.Time) *Machine {
	return &Machine{now: now}
}

func findEdge(from, to enum.QuotationStatus) (edge, bool) {
	for _, e := range edges {
		if e.from == from && e.to == to {
			return e, true
		}
	}
	return edge{}, false
}

// Plan validates moving from current to target without changing anything
func (m *Machine) Plan(current, target enum.QuotationStatus, actor entity.Actor) (Outcome, error) {
	if !target.IsValid() {
		return Outcome{}, apperror.NewInvalidTransitionError(current.String(), target.String())
	}
	if current == target {
		return Outcome{}, apperror.NewAlreadyInTargetStateError(current.String())
	}
	e, ok := findEdge(current, target)
	if !ok {
		return Outcome{}, apperror.NewInvalidTransitionError(current.String(), target.String())
	}
	if e.adminOnly && !actor.IsAdmin() {
		return Outcome{}, apperror.NewPermissionDeniedError(string(e.action) + " this quotation")
	}
	return Outcome{From: e.from, To: e.to, Action: e.action, ReviewReason: e.reason}, nil
}

// Transition validates and applies target to q, appending one history entry
func (m *Machine) Transition(q *entity.Quotation, target enum.QuotationStatus, actor entity.Actor) (Outcome, error) {
	outcome, err := m.Plan(q.Status, target, actor)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := m.Commit(q, outcome, actor); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// Commit applies a previously planned outcome. It refuses to apply when q has
// moved away from the outcome's source status in the meantime.
func (m *Machine) Commit(q *entity.Quotation, outcome Outcome, actor entity.Actor) (entity.StatusHistoryEntry, error) {
	if q.Status != outcome.From {
		if q.Status == outcome.To {
			return entity.StatusHistoryEntry{}, apperror.NewAlreadyInTargetStateError(q.Status.String())
		}
		return entity.StatusHistoryEntry{}, apperror.NewInvalidTransitionError(q.Status.String(), outcome.To.String())
	}
	return q.RecordStatus(outcome.To, outcome.ReviewReason, actor.IDPtr(), m.now().UTC()), nil
}

// Targets returns the statuses reachable from current by actor
func (m *Machine) Targets(current enum.QuotationStatus, actor entity.Actor) []enum.QuotationStatus {
	var targets []enum.QuotationStatus
	for _, e := range edges {
		if e.from == current && (!e.adminOnly || actor.IsAdmin()) {
			targets = append(targets, e.to)
		}
	}
	return targets
}

// AllowedActions lists every action actor may currently take on a quotation
// in status
func (m *Machine) AllowedActions(status enum.QuotationStatus, actor entity.Actor) []Action {
	var actions []Action
	for _, e := range edges {
		if e.from == status && (!e.adminOnly || actor.IsAdmin()) {
			actions = append(actions, e.action)
		}
	}
	if CanEditLines(status) {
		actions = append(actions, ActionEditLines)
	}
	if CanEditDiscount(status, actor) {
		actions = append(actions, ActionEditDiscount)
	}
	if CanDelete(status, actor) {
		actions = append(actions, ActionDelete)
	}
	if CanInvoice(status, actor) {
		actions = append(actions, ActionInvoice)
	}
	return actions
}

// CanEditLines reports whether cart lines may be added, removed or re-quantified
func CanEditLines(status enum.QuotationStatus) bool {
	return lineEditable[status]
}

// CanEditDiscount reports whether actor may change the discount. Approvers
// keep a discount-only edit surface while the order is in review.
func CanEditDiscount(status enum.QuotationStatus, actor entity.Actor) bool {
	if lineEditable[status] {
		return true
	}
	return status == enum.QuotationStatusReview && actor.IsAdmin()
}

// CanDelete reports whether actor may delete a quotation in status
func CanDelete(status enum.QuotationStatus, actor entity.Actor) bool {
	return status == enum.QuotationStatusRejected && actor.IsAdmin()
}

// IsInvoiceable reports whether status is a legal input to invoice generation
func IsInvoiceable(status enum.QuotationStatus) bool {
	return status == enum.QuotationStatusApproved || status == enum.QuotationStatusConfirmed
}

// CanInvoice reports whether actor may issue an invoice for status
func CanInvoice(status enum.QuotationStatus, actor entity.Actor) bool {
	return IsInvoiceable(status) && actor.IsAdmin()
}

// EnsureDeletable returns the error a delete attempt should surface, or nil
func EnsureDeletable(status enum.QuotationStatus, actor entity.Actor) error {
	if status != enum.QuotationStatusRejected {
		return apperror.NewConflictError("Only rejected quotations can be deleted")
	}
	if !actor.IsAdmin() {
		return apperror.NewPermissionDeniedError("delete this quotation")
	}
	return nil
}

// EnsureInvoiceable returns the error an invoice attempt should surface, or nil
func EnsureInvoiceable(status enum.QuotationStatus, actor entity.Actor) error {
	if !IsInvoiceable(status) {
		return apperror.NewConflictError("Invoices can only be generated for approved or confirmed orders")
	}
	if !actor.IsAdmin() {
		return apperror.NewPermissionDeniedError("generate an invoice")
	}
	return nil
}

// EnsureDiscountEditable returns the error a discount edit should surface, or nil
func EnsureDiscountEditable(status enum.QuotationStatus, actor entity.Actor) error {
	if CanEditDiscount(status, actor) {
		return nil
	}
	if status == enum.QuotationStatusReview {
		return apperror.NewPermissionDeniedError("edit the discount during review")
	}
	return apperror.NewCartLockedError(status.String())
}

// EnsureLinesEditable returns the error a line edit should surface, or nil
func EnsureLinesEditable(status enum.QuotationStatus) error {
	if CanEditLines(status) {
		return nil
	}
	return apperror.NewCartLockedError(status.String())
}
