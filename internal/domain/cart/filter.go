package cart

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
)

// FilterCriteria holds the active facet values. An empty value means unset.
// Category gates every other facet.
type FilterCriteria struct {
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Model    string `json:"model,omitempty"`
	Year     string `json:"year,omitempty"`
	Color    string `json:"color,omitempty"`
}

// WithCategory returns criteria holding only category. The dependent facets
// are cleared in the same value.
func (c FilterCriteria) WithCategory(category string) FilterCriteria {
	return FilterCriteria{Category: category}
}

// WithFacet returns criteria with facet set to value
func (c FilterCriteria) WithFacet(f Facet, value string) (FilterCriteria, error) {
	if f == FacetCategory {
		return c.WithCategory(value), nil
	}
	if c.Category == "" && value != "" {
		return c, apperror.NewFieldValidationError(string(f), "select a category first")
	}
	next := c
	switch f {
	case FacetBrand:
		next.Brand = value
	case FacetModel:
		next.Model = value
	case FacetYear:
		next.Year = value
	case FacetColor:
		next.Color = value
	default:
		return c, apperror.NewFieldValidationError("facet", "unknown facet "+string(f))
	}
	return next, nil
}

// Value returns the value set for facet
func (c FilterCriteria) Value(f Facet) string {
	switch f {
	case FacetCategory:
		return c.Category
	case FacetBrand:
		return c.Brand
	case FacetModel:
		return c.Model
	case FacetYear:
		return c.Year
	case FacetColor:
		return c.Color
	}
	return ""
}

// IsEmpty reports whether no facet is set
func (c FilterCriteria) IsEmpty() bool {
	return c == FilterCriteria{}
}

// Matches reports whether every set facet equals the item's value
func (c FilterCriteria) Matches(item Item) bool {
	for _, f := range Facets {
		want := c.Value(f)
		if want != "" && item.FacetValue(f) != want {
			return false
		}
	}
	return true
}

// FilterView derives the visible subset of a master item list. It never
// touches the selection.
type FilterView struct {
	master   []Item
	index    map[uuid.UUID]int
	criteria FilterCriteria
}

// NewFilterView creates a view over an empty master list
func NewFilterView() *FilterView {
	return &FilterView{index: make(map[uuid.UUID]int)}
}

// SetMaster replaces the master item list
func (v *FilterView) SetMaster(items []Item) {
	v.master = make([]Item, len(items))
	copy(v.master, items)
	v.index = make(map[uuid.UUID]int, len(items))
	for i, item := range v.master {
		v.index[item.ID] = i
	}
}

// ClearMaster drops the master list, e.g. when its prices went stale
func (v *FilterView) ClearMaster() {
	v.SetMaster(nil)
}

// Master returns the master list
func (v *FilterView) Master() []Item {
	return v.master
}

// Loaded reports whether a master list is present
func (v *FilterView) Loaded() bool {
	return len(v.master) > 0
}

// Lookup finds an item of the master list by ID
func (v *FilterView) Lookup(id uuid.UUID) (Item, bool) {
	i, ok := v.index[id]
	if !ok {
		return Item{}, false
	}
	return v.master[i], true
}

// Criteria returns the active criteria
func (v *FilterView) Criteria() FilterCriteria {
	return v.criteria
}

// SetCriteria replaces the active criteria in one step
func (v *FilterView) SetCriteria(c FilterCriteria) {
	v.criteria = c
}

// Visible recomputes the items of the master list matching the criteria
func (v *FilterView) Visible() []Item {
	visible := make([]Item, 0, len(v.master))
	for _, item := range v.master {
		if v.criteria.Matches(item) {
			visible = append(visible, item)
		}
	}
	return visible
}

// IsVisible reports whether id is in the master list and matches the criteria
func (v *FilterView) IsVisible(id uuid.UUID) bool {
	item, ok := v.Lookup(id)
	return ok && v.criteria.Matches(item)
}

// Hidden returns the selected IDs the current criteria exclude
func (v *FilterView) Hidden(selection *SelectionStore) []uuid.UUID {
	var hidden []uuid.UUID
	for _, id := range selection.IDs() {
		if !v.IsVisible(id) {
			hidden = append(hidden, id)
		}
	}
	return hidden
}

// FacetSummary lists the distinct values available per facet
type FacetSummary map[Facet][]string

// Summarize computes facet values over items. Values for a dependent facet
// are taken only from the items that match the category.
func Summarize(items []Item, criteria FilterCriteria) FacetSummary {
	sets := make(map[Facet]map[string]struct{}, len(Facets))
	for _, f := range Facets {
		sets[f] = make(map[string]struct{})
	}
	for _, item := range items {
		if v := item.Category; v != "" {
			sets[FacetCategory][v] = struct{}{}
		}
		if criteria.Category != "" && item.Category != criteria.Category {
			continue
		}
		for _, f := range Facets[1:] {
			if v := item.FacetValue(f); v != "" {
				sets[f][v] = struct{}{}
			}
		}
	}
	summary := make(FacetSummary, len(Facets))
	for f, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		summary[f] = values
	}
	return summary
}
