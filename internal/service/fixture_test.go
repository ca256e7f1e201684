package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"goldledger/internal/infra"
	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ── Test clock ───────────────────────────────────────────────────────────────

// stepClock advances one second on every read so lots created one after the
// other always have distinct, ordered CreatedAt values.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// ── Fixture ──────────────────────────────────────────────────────────────────

const testPurities = "24:1.000,22:0.9167,21:0.875,18:0.750,14:0.585"

type fixture struct {
	ctx       context.Context
	store     *repository.MemoryLedgerStore
	suppliers *repository.MemorySupplierRepository
	products  *repository.MemoryProductRepository
	locker    *infra.MemoryLocker

	ledger        OwnershipLedger
	costing       CostingEngine
	conversions   KaratConversionService
	consolidation ConsolidationService
	validator     BalanceValidator
	credit        SupplierCreditGuard

	branch uuid.UUID
}

func newFixture(t *testing.T, suppliers ...model.Supplier) *fixture {
	t.Helper()
	clock := newStepClock()
	store := repository.NewMemoryLedgerStore()
	supplierRepo := repository.NewMemorySupplierRepository(suppliers...)
	productRepo := repository.NewMemoryProductRepository()
	locker := infra.NewMemoryLocker(5 * time.Second)

	purities, err := ParsePurityTable(testPurities)
	require.NoError(t, err)

	uow := NewUnitOfWork(store, locker)
	recorder := NewMovementRecorder(clock.Now)
	credit := NewSupplierCreditGuard(NewSupplierRegistry(supplierRepo, store))
	opts := LedgerOptions{DefaultCurrency: "USD", Now: clock.Now}

	return &fixture{
		ctx:           context.Background(),
		store:         store,
		suppliers:     supplierRepo,
		products:      productRepo,
		locker:        locker,
		ledger:        NewOwnershipLedger(uow, store, recorder, credit, opts),
		costing:       NewCostingEngine(store),
		conversions:   NewKaratConversionService(uow, store, recorder, purities, opts),
		consolidation: NewConsolidationService(uow, store, recorder, opts),
		validator:     NewBalanceValidator(NewSnapshotCache(store, nil, time.Minute), NewCatalog(productRepo)),
		credit:        credit,
		branch:        uuid.New(),
	}
}

func newSupplier(name string, limit string, enforced bool) model.Supplier {
	return model.Supplier{
		ID:                  uuid.New(),
		Name:                name,
		TaxID:               "TAX-" + name,
		CreditLimit:         dec(limit),
		CreditLimitEnforced: enforced,
		OpeningBalance:      decimal.Zero,
		Active:              true,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// receiveGold books a raw-gold receipt and fails the test on error.
func (f *fixture) receiveGold(t *testing.T, karat int, supplierID uuid.UUID, weight, unitCost, paid string, separate bool) *ReceiptResult {
	t.Helper()
	res, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item:        model.RawGoldRef(karat),
		BranchID:    f.branch,
		SupplierID:  supplierID,
		Weight:      dec(weight),
		Quantity:    decimal.Zero,
		UnitCost:    dec(unitCost),
		PaidAmount:  dec(paid),
		SeparateLot: separate,
		Reference:   "RCV-" + weight,
		Actor:       "clerk1",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) lot(t *testing.T, id uuid.UUID) *model.OwnershipLot {
	t.Helper()
	lot, err := f.ledger.GetLot(f.ctx, id)
	require.NoError(t, err)
	return lot
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func lotFilterAll() repository.LotFilter { return repository.LotFilter{IncludeDepleted: true} }
