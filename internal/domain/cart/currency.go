package cart

import (
	"net/http"
	"strings"
	"time"

	"github.com/sangkips/quoteflow-api/pkg/apperror"
)

// ChangeKind distinguishes a currency switch from a price refresh
type ChangeKind string

const (
	ChangeKindCurrency ChangeKind = "currency"
	ChangeKindRefresh  ChangeKind = "refresh"
)

// CurrencyChangeRequest is a staged change awaiting the user's decision. It
// only exists between the pick and the confirm/cancel.
type CurrencyChangeRequest struct {
	Kind                 ChangeKind `json:"kind"`
	ProposedCurrency     string     `json:"proposed_currency"`
	PreviousCurrency     string     `json:"previous_currency"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
	RequestedAt          time.Time  `json:"requested_at"`
}

// Decision is how a currency or refresh request was resolved
type Decision string

const (
	DecisionApplied  Decision = "applied"
	DecisionStaged   Decision = "staged"
	DecisionNoChange Decision = "no_change"
)

// ErrNothingPending is returned when confirming or cancelling with no staged request
var ErrNothingPending = &apperror.AppError{
	Code:    http.StatusConflict,
	Kind:    "nothing_pending",
	Message: "No currency change is awaiting confirmation",
}

type cartState interface {
	IsEmpty() bool
}

// CurrencyReconciler decides whether a currency change or refresh applies at
// once or waits for confirmation. It holds no catalog state; callers perform
// the side effects a Decision implies.
type CurrencyReconciler struct {
	active    string
	displayed string
	pending   *CurrencyChangeRequest
	now       func() time.Time
}

// NewCurrencyReconciler creates a reconciler with active as the pricing currency
func NewCurrencyReconciler(active string, now func() time.Time) *CurrencyReconciler {
	if now == nil {
		now = time.Now
	}
	code := NormalizeCurrency(active)
	return &CurrencyReconciler{active: code, displayed: code, now: now}
}

// NormalizeCurrency upper-cases and trims a currency code
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency checks the shape of an ISO-like currency code
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return apperror.NewFieldValidationError("currency", "must be a 3 letter code")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return apperror.NewFieldValidationError("currency", "must be a 3 letter code")
		}
	}
	return nil
}

// Active returns the currency prices are currently expressed in
func (r *CurrencyReconciler) Active() string {
	return r.active
}

// Displayed returns the currency the picker shows. While a change is staged
// it shows the proposed currency.
func (r *CurrencyReconciler) Displayed() string {
	return r.displayed
}

// Pending returns a copy of the staged request, or nil
func (r *CurrencyReconciler) Pending() *CurrencyChangeRequest {
	if r.pending == nil {
		return nil
	}
	p := *r.pending
	return &p
}

// Guard returns a stale currency error while a request is staged
func (r *CurrencyReconciler) Guard() error {
	if r.pending != nil {
		return apperror.NewStaleCurrencyError(r.Pending())
	}
	return nil
}

// RequestChange handles the user picking proposed. An empty cart applies
// immediately; otherwise the change is staged.
func (r *CurrencyReconciler) RequestChange(proposed string, cart cartState) (Decision, *CurrencyChangeRequest, error) {
	if err := r.Guard(); err != nil {
		return "", nil, err
	}
	code := NormalizeCurrency(proposed)
	if err := ValidateCurrency(code); err != nil {
		return "", nil, err
	}
	if code == r.active {
		return DecisionNoChange, nil, nil
	}
	if cart.IsEmpty() {
		r.active = code
		r.displayed = code
		return DecisionApplied, nil, nil
	}
	r.pending = &CurrencyChangeRequest{
		Kind:                 ChangeKindCurrency,
		ProposedCurrency:     code,
		PreviousCurrency:     r.active,
		RequiresConfirmation: true,
		RequestedAt:          r.now().UTC(),
	}
	r.displayed = code
	return DecisionStaged, r.Pending(), nil
}

// RequestRefresh handles an explicit inventory refresh in the active currency
func (r *CurrencyReconciler) RequestRefresh(cart cartState) (Decision, *CurrencyChangeRequest, error) {
	if err := r.Guard(); err != nil {
		return "", nil, err
	}
	if cart.IsEmpty() {
		return DecisionApplied, nil, nil
	}
	r.pending = &CurrencyChangeRequest{
		Kind:                 ChangeKindRefresh,
		ProposedCurrency:     r.active,
		PreviousCurrency:     r.active,
		RequiresConfirmation: true,
		RequestedAt:          r.now().UTC(),
	}
	return DecisionStaged, r.Pending(), nil
}

// Confirm applies the staged request and discards it
func (r *CurrencyReconciler) Confirm() (CurrencyChangeRequest, error) {
	if r.pending == nil {
		return CurrencyChangeRequest{}, ErrNothingPending
	}
	resolved := *r.pending
	r.active = resolved.ProposedCurrency
	r.displayed = resolved.ProposedCurrency
	r.pending = nil
	return resolved, nil
}

// Cancel discards the staged request and reverts the picker
func (r *CurrencyReconciler) Cancel() (CurrencyChangeRequest, error) {
	if r.pending == nil {
		return CurrencyChangeRequest{}, ErrNothingPending
	}
	resolved := *r.pending
	r.displayed = resolved.PreviousCurrency
	r.pending = nil
	return resolved, nil
}

// Reset forgets any staged request and sets active as the currency
func (r *CurrencyReconciler) Reset(active string) {
	code := NormalizeCurrency(active)
	r.active = code
	r.displayed = code
	r.pending = nil
}
