package service

import (
	"context"
	"time"

	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CostingMethod string

const (
	MethodWAC  CostingMethod = "wac"
	MethodFIFO CostingMethod = "fifo"
	MethodLIFO CostingMethod = "lifo"
)

// CostQuote is the cost of taking Requested out of an item's holdings at a
// branch. Plan is empty for WAC.
type CostQuote struct {
	Method    CostingMethod
	Item      model.ItemRef
	BranchID  uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
	TotalCost decimal.Decimal
	UnitCost  decimal.Decimal
	Plan      []CostLayer
	QuotedAt  time.Time
}

// CostLayer is the share of a quote drawn from one lot.
type CostLayer struct {
	LotID      uuid.UUID
	SupplierID uuid.UUID
	AcquiredAt time.Time
	Measure    decimal.Decimal
	UnitCost   decimal.Decimal
	Cost       decimal.Decimal
}

// CostingEngine prices outbound stock without changing anything.
type CostingEngine interface {
	WeightedAverageCost(ctx context.Context, item model.ItemRef, branchID uuid.UUID) (decimal.Decimal, error)
	FIFOCost(ctx context.Context, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error)
	LIFOCost(ctx context.Context, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error)
	Quote(ctx context.Context, method CostingMethod, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error)
}

type costingEngine struct {
	repo repository.LedgerRepository
	now  func() time.Time
}

func NewCostingEngine(repo repository.LedgerRepository) CostingEngine {
	return &costingEngine{repo: repo, now: time.Now}
}

func (e *costingEngine) WeightedAverageCost(ctx context.Context, item model.ItemRef, branchID uuid.UUID) (decimal.Decimal, error) {
	lots, err := e.lots(ctx, item, branchID)
	if err != nil {
		return decimal.Zero, err
	}
	avg, measure := blendedUnitCost(lots)
	if !measure.IsPositive() {
		return decimal.Zero, newLedgerError(KindInsufficientOwnership, &BalanceSnapshot{},
			"no owned stock of %s in branch %s", item.Key(), branchID)
	}
	return RoundMoney(avg), nil
}

func (e *costingEngine) FIFOCost(ctx context.Context, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error) {
	return e.layered(ctx, MethodFIFO, FIFO(), item, branchID, requested)
}

func (e *costingEngine) LIFOCost(ctx context.Context, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error) {
	return e.layered(ctx, MethodLIFO, LIFO(), item, branchID, requested)
}

func (e *costingEngine) Quote(ctx context.Context, method CostingMethod, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error) {
	switch method {
	case MethodFIFO:
		return e.FIFOCost(ctx, item, branchID, requested)
	case MethodLIFO:
		return e.LIFOCost(ctx, item, branchID, requested)
	case MethodWAC, "":
	default:
		return nil, invalidInput("unknown costing method %q", method)
	}

	if err := validateRequested(requested); err != nil {
		return nil, err
	}
	lots, err := e.lots(ctx, item, branchID)
	if err != nil {
		return nil, err
	}
	avg, available := blendedUnitCost(lots)
	if available.LessThan(requested) {
		return nil, newLedgerError(KindInsufficientOwnership, &BalanceSnapshot{Available: available, Requested: requested},
			"requested %s of %s, only %s owned", requested, item.Key(), available)
	}
	return &CostQuote{
		Method:    MethodWAC,
		Item:      item,
		BranchID:  branchID,
		Requested: requested,
		Available: available,
		TotalCost: RoundMoney(requested.Mul(avg)),
		UnitCost:  RoundMoney(avg),
		QuotedAt:  e.now(),
	}, nil
}

func (e *costingEngine) layered(ctx context.Context, method CostingMethod, selector LotSelector, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal) (*CostQuote, error) {
	if err := validateRequested(requested); err != nil {
		return nil, err
	}
	lots, err := e.lots(ctx, item, branchID)
	if err != nil {
		return nil, err
	}
	ordered := selector.Order(lots)
	slices, available := planConsumption(ordered, requested)
	if available.LessThan(requested) {
		return nil, newLedgerError(KindInsufficientOwnership, &BalanceSnapshot{Available: available, Requested: requested},
			"requested %s of %s, only %s owned", requested, item.Key(), available)
	}

	acquired := make(map[uuid.UUID]time.Time, len(ordered))
	for _, lot := range ordered {
		acquired[lot.ID] = lot.CreatedAt
	}
	total := decimal.Zero
	plan := make([]CostLayer, 0, len(slices))
	for _, s := range slices {
		total = total.Add(s.Cost)
		plan = append(plan, CostLayer{
			LotID:      s.LotID,
			SupplierID: s.SupplierID,
			AcquiredAt: acquired[s.LotID],
			Measure:    s.Measure,
			UnitCost:   s.UnitCost,
			Cost:       s.Cost,
		})
	}
	return &CostQuote{
		Method:    method,
		Item:      item,
		BranchID:  branchID,
		Requested: requested,
		Available: available,
		TotalCost: RoundMoney(total),
		UnitCost:  RoundMoney(total.Div(requested)),
		Plan:      plan,
		QuotedAt:  e.now(),
	}, nil
}

func (e *costingEngine) lots(ctx context.Context, item model.ItemRef, branchID uuid.UUID) ([]model.OwnershipLot, error) {
	if err := item.Validate(); err != nil {
		return nil, invalidInput("%v", err)
	}
	return e.repo.ListLots(ctx, repository.LotFilter{ItemKey: item.Key(), BranchID: &branchID, OnlyWithStock: true})
}

// blendedUnitCost is Σ(measure×unitCost)/Σmeasure over lots with stock.
func blendedUnitCost(lots []model.OwnershipLot) (avg, measure decimal.Decimal) {
	value := decimal.Zero
	measure = decimal.Zero
	for i := range lots {
		m := lots[i].CostMeasure()
		if !m.IsPositive() {
			continue
		}
		measure = measure.Add(m)
		value = value.Add(m.Mul(lots[i].UnitCost))
	}
	if !measure.IsPositive() {
		return decimal.Zero, measure
	}
	return value.Div(measure), measure
}

func validateRequested(requested decimal.Decimal) error {
	if !requested.IsPositive() {
		return invalidInput("requested quantity must be positive")
	}
	return nil
}
