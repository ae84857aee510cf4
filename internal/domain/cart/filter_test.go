package cart

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

func item(category, brand, model string, year int, color string) Item {
	return Item{
		ID:        uuid.New(),
		Code:      brand + "-" + model,
		Name:      brand + " " + model,
		Category:  category,
		Brand:     brand,
		Model:     model,
		Year:      year,
		Color:     color,
		Currency:  "USD",
		UnitPrice: decimal.NewFromInt(100),
	}
}

func catalog() []Item {
	return []Item{
		item("tyres", "Michelin", "Pilot", 2023, "black"),
		item("tyres", "Bridgestone", "Turanza", 2022, "black"),
		item("brakes", "Brembo", "GT", 2023, "red"),
		item("brakes", "Bosch", "QuietCast", 2021, "grey"),
	}
}

func TestFilterCriteria_WithCategoryResetsDependents(t *testing.T) {
	c := FilterCriteria{Category: "tyres", Brand: "Michelin", Model: "Pilot", Year: "2023", Color: "black"}
	next := c.WithCategory("brakes")
	want := FilterCriteria{Category: "brakes"}
	if next != want {
		t.Errorf("WithCategory() = %+v, want %+v", next, want)
	}
	if c.Brand != "Michelin" {
		t.Error("WithCategory must not mutate the receiver")
	}
}

func TestFilterCriteria_WithFacetRequiresCategory(t *testing.T) {
	_, err := FilterCriteria{}.WithFacet(FacetBrand, "Bosch")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	c, err := FilterCriteria{Category: "brakes"}.WithFacet(FacetBrand, "Bosch")
	if err != nil {
		t.Fatal(err)
	}
	if c.Brand != "Bosch" || c.Category != "brakes" {
		t.Errorf("WithFacet() = %+v", c)
	}

	// clearing a dependent facet is always allowed
	if _, err := (FilterCriteria{}).WithFacet(FacetColor, ""); err != nil {
		t.Errorf("clearing without category: %v", err)
	}
}

func TestFilterView_Visible(t *testing.T) {
	items := catalog()
	v := NewFilterView()
	v.SetMaster(items)

	tests := []struct {
		name     string
		criteria FilterCriteria
		want     int
	}{
		{"no filters", FilterCriteria{}, 4},
		{"category", FilterCriteria{Category: "tyres"}, 2},
		{"category and year", FilterCriteria{Category: "brakes", Year: "2023"}, 1},
		{"no match", FilterCriteria{Category: "tyres", Color: "red"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.SetCriteria(tt.criteria)
			if got := len(v.Visible()); got != tt.want {
				t.Errorf("len(Visible()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFilterView_SelectionSurvivesFilterChanges(t *testing.T) {
	items := catalog()
	v := NewFilterView()
	v.SetMaster(items)
	s := NewSelectionStore()
	s.Select(items[0].ID)
	s.Select(items[2].ID)
	if _, err := s.AdjustQuantity(items[2].ID, 4); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	sequence := []FilterCriteria{
		{Category: "tyres"},
		{Category: "tyres", Brand: "Michelin"},
		{Category: "brakes"},
		{},
	}
	for _, c := range sequence {
		v.SetCriteria(c)
		_ = v.Visible()
		if !reflect.DeepEqual(s.Snapshot(), before) {
			t.Fatalf("selection changed under filter %+v", c)
		}
	}
}

func TestFilterView_Hidden(t *testing.T) {
	items := catalog()
	v := NewFilterView()
	v.SetMaster(items)
	s := NewSelectionStore()
	s.Select(items[0].ID)
	s.Select(items[2].ID)

	v.SetCriteria(FilterCriteria{Category: "tyres"})
	hidden := v.Hidden(s)
	if len(hidden) != 1 || hidden[0] != items[2].ID {
		t.Errorf("Hidden() = %v, want [%s]", hidden, items[2].ID)
	}

	v.SetCriteria(FilterCriteria{})
	if hidden := v.Hidden(s); len(hidden) != 0 {
		t.Errorf("no filter should hide nothing, got %v", hidden)
	}

	v.ClearMaster()
	if hidden := v.Hidden(s); len(hidden) != 2 {
		t.Errorf("items missing from the master list count as hidden, got %v", hidden)
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(catalog(), FilterCriteria{Category: "brakes"})

	if got := summary[FacetCategory]; !reflect.DeepEqual(got, []string{"brakes", "tyres"}) {
		t.Errorf("categories = %v", got)
	}
	if got := summary[FacetBrand]; !reflect.DeepEqual(got, []string{"Bosch", "Brembo"}) {
		t.Errorf("brands = %v", got)
	}
	if got := summary[FacetYear]; !reflect.DeepEqual(got, []string{"2021", "2023"}) {
		t.Errorf("years = %v", got)
	}
}

func TestParseFacet(t *testing.T) {
	if f, ok := ParseFacet("model"); !ok || f != FacetModel {
		t.Errorf("ParseFacet(model) = %v, %v", f, ok)
	}
	if _, ok := ParseFacet("price"); ok {
		t.Error("price is not a facet")
	}
}
