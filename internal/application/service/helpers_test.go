package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/cache"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/database"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/repository"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	agent = entity.Actor{ID: uuid.New(), Roles: []string{entity.RoleAgent}}
	admin = entity.Actor{ID: uuid.New(), Roles: []string{entity.RoleAdmin}}
	fixed = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func clock() time.Time { return fixed }

// ticking returns a clock that advances one second per read, so history
// entries written in one test keep their order
func ticking(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type backend struct {
	db         *gorm.DB
	quotations *QuotationService
	catalog    *CatalogService
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedDefaultData(db, zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	productRepo := repository.NewProductRepository(db)
	quotations := NewQuotationService(
		repository.NewQuotationRepository(db),
		productRepo,
		repository.NewCustomerRepository(db),
		repository.NewInvoiceRepository(db),
		30,
		zap.NewNop(),
	).WithClock(ticking(fixed))
	catalog := NewCatalogService(productRepo, repository.NewCurrencyRepository(db), cache.NewMemory(), time.Minute, zap.NewNop())
	return &backend{db: db, quotations: quotations, catalog: catalog}
}

// productID looks up a seeded product by code
func (b *backend) productID(t *testing.T, code string) uuid.UUID {
	t.Helper()
	var p entity.Product
	if err := b.db.Where("code = ?", code).First(&p).Error; err != nil {
		t.Fatalf("product %s: %v", code, err)
	}
	return p.ID
}

func (b *backend) sessions(notifier Notifier) *SessionService {
	return NewSessionService(b.catalog, b.quotations, b.catalog, notifier, SessionOptions{
		DefaultCurrency: "USD",
		DefaultLimit:    10,
		VATPercentage:   decimal.NewFromInt(5),
		IdleTTL:         time.Hour,
	}, zap.NewNop()).WithClock(clock)
}

// fakeCatalog serves a fixed in-memory catalog per currency
type fakeCatalog struct {
	mu    sync.Mutex
	items map[string][]cart.Item
	err   error
	block bool
	calls int

	gates   map[string]chan struct{}
	entered chan string
}

func newFakeCatalog() *fakeCatalog {
	mk := func(code, name, category, brand string, usd string) cart.Item {
		return cart.Item{ID: uuid.New(), Code: code, Name: name, Category: category, Brand: brand, UnitPrice: decimal.RequireFromString(usd)}
	}
	usd := []cart.Item{
		mk("A", "Alloy wheel", "wheels", "OZ", "100"),
		mk("B", "Brake pad", "brakes", "Bosch", "50"),
		mk("C", "Brake disc", "brakes", "Brembo", "80"),
	}
	items := map[string][]cart.Item{}
	for code, rate := range map[string]string{"USD": "1", "AED": "3.5", "EUR": "0.9"} {
		priced := make([]cart.Item, len(usd))
		for i, it := range usd {
			it.Currency = code
			it.UnitPrice = it.UnitPrice.Mul(decimal.RequireFromString(rate))
			priced[i] = it
		}
		items[code] = priced
	}
	return &fakeCatalog{items: items, entered: make(chan string, 4)}
}

func (f *fakeCatalog) item(currency, code string) cart.Item {
	for _, it := range f.items[currency] {
		if it.Code == code {
			return it
		}
	}
	panic("no item " + code)
}

func (f *fakeCatalog) failure(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	err, block := f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeCatalog) FetchCatalogAll(ctx context.Context, currency string) ([]cart.Item, error) {
	if err := f.failure(ctx); err != nil {
		return nil, err
	}
	return append([]cart.Item(nil), f.items[currency]...), nil
}

func (f *fakeCatalog) FetchCatalogPage(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	if err := f.failure(ctx); err != nil {
		return nil, err
	}
	if gate, ok := f.gates[q.Filters.Category]; ok {
		f.entered <- q.Filters.Category
		<-gate
	}

	var matched []cart.Item
	for _, it := range f.items[q.Currency] {
		if !q.Filters.Matches(it) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, it)
	}
	params := &pagination.PaginationParams{Page: q.Page, PerPage: q.Limit}
	params.Validate()
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return &CatalogPage{
		Items:      matched[start:end],
		Facets:     cart.Summarize(f.items[q.Currency], q.Filters),
		Pagination: pagination.NewPagination(params.Page, params.PerPage, int64(len(matched))),
	}, nil
}

func (f *fakeCatalog) set(err error, block bool) {
	f.mu.Lock()
	f.err, f.block = err, block
	f.mu.Unlock()
}

type fakeDirectory struct{}

func (fakeDirectory) ListCurrencies(context.Context) ([]entity.Currency, error) {
	return []entity.Currency{{Code: "USD", Active: true}, {Code: "AED", Active: true}, {Code: "EUR", Active: true}}, nil
}

// failingQuotations wraps a quotation client and fails transitions on demand
type failingQuotations struct {
	QuotationClient
	transitionErr error
}

func (f *failingQuotations) SubmitTransition(ctx context.Context, actor entity.Actor, id uuid.UUID, target enum.QuotationStatus) (*TransitionResult, error) {
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	return f.QuotationClient.SubmitTransition(ctx, actor, id, target)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Publish(e Event) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

func (n *recordingNotifier) last() Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func fakeSessions(catalog *fakeCatalog, notifier Notifier) *SessionService {
	return NewSessionService(catalog, nil, fakeDirectory{}, notifier, SessionOptions{
		DefaultCurrency: "USD",
		DefaultLimit:    10,
		RemoteTimeout:   50 * time.Millisecond,
		IdleTTL:         time.Hour,
	}, zap.NewNop()).WithClock(clock)
}
