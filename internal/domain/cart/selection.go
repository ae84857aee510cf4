package cart

import (
	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
)

// SelectionStore maps selected item IDs to quantities. It knows nothing about
// filters; every key has quantity ≥ 1 and deselecting removes the key.
type SelectionStore struct {
	quantities map[uuid.UUID]int
	order      []uuid.UUID
}

// NewSelectionStore creates an empty selection
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{quantities: make(map[uuid.UUID]int)}
}

// Select adds id with quantity 1. Selecting an already selected item is a no-op.
func (s *SelectionStore) Select(id uuid.UUID) {
	if _, ok := s.quantities[id]; ok {
		return
	}
	s.quantities[id] = 1
	s.order = append(s.order, id)
}

// Deselect removes id entirely
func (s *SelectionStore) Deselect(id uuid.UUID) {
	if _, ok := s.quantities[id]; !ok {
		return
	}
	delete(s.quantities, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// AdjustQuantity adds delta to the quantity of id, never going below 1.
// Decrementing never deselects.
func (s *SelectionStore) AdjustQuantity(id uuid.UUID, delta int) (int, error) {
	current, ok := s.quantities[id]
	if !ok {
		return 0, apperror.NewNotFoundError("Selected item")
	}
	next := current + delta
	if next < 1 {
		next = 1
	}
	s.quantities[id] = next
	return next, nil
}

// SetQuantity sets an explicit quantity for id
func (s *SelectionStore) SetQuantity(id uuid.UUID, quantity int) error {
	if _, ok := s.quantities[id]; !ok {
		return apperror.NewNotFoundError("Selected item")
	}
	if quantity < 1 {
		return apperror.NewFieldValidationError("quantity", "must be at least 1")
	}
	s.quantities[id] = quantity
	return nil
}

// put selects id with quantity directly, used when hydrating from saved lines
func (s *SelectionStore) put(id uuid.UUID, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if _, ok := s.quantities[id]; !ok {
		s.order = append(s.order, id)
	}
	s.quantities[id] = quantity
}

// IsSelected reports whether id is selected
func (s *SelectionStore) IsSelected(id uuid.UUID) bool {
	_, ok := s.quantities[id]
	return ok
}

// Quantity returns the quantity of id, or 0 when not selected
func (s *SelectionStore) Quantity(id uuid.UUID) int {
	return s.quantities[id]
}

// IDs returns selected IDs in selection order
func (s *SelectionStore) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.order))
	copy(ids, s.order)
	return ids
}

// Snapshot returns a copy of the id → quantity mapping
func (s *SelectionStore) Snapshot() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.quantities))
	for id, q := range s.quantities {
		out[id] = q
	}
	return out
}

// Len returns the number of selected items
func (s *SelectionStore) Len() int {
	return len(s.quantities)
}

// IsEmpty reports whether nothing is selected
func (s *SelectionStore) IsEmpty() bool {
	return len(s.quantities) == 0
}

// Clear removes every selection
func (s *SelectionStore) Clear() {
	s.quantities = make(map[uuid.UUID]int)
	s.order = nil
}
