package service

import (
	"context"
	"sort"
	"time"

	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleValidation answers "can this sale go through?" from a snapshot that
// may be slightly stale. The sale itself re-checks under lock.
type SaleValidation struct {
	Item      model.ItemRef
	BranchID  uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
	// PaidAvailable is the part of Available already paid to suppliers.
	PaidAvailable decimal.Decimal
	Shortfall     decimal.Decimal
	CanSell       bool
	Warnings      []LedgerWarning
}

type LowOwnershipAlert struct {
	Item      ItemDescription
	BranchID  uuid.UUID
	Weight    decimal.Decimal
	Quantity  decimal.Decimal
	Threshold decimal.Decimal
	Lots      int
}

type OutstandingPaymentAlert struct {
	SupplierID  uuid.UUID
	BranchID    *uuid.UUID
	AmountOwed  decimal.Decimal
	Lots        int
	OldestLotAt time.Time
	LotIDs      []uuid.UUID
}

// BalanceValidator is the read-only side: pre-sale checks and alerts.
type BalanceValidator interface {
	ValidateSale(ctx context.Context, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal, requirePaid bool) (*SaleValidation, error)
	LowOwnershipAlerts(ctx context.Context, branchID *uuid.UUID, thresholdGrams decimal.Decimal) ([]LowOwnershipAlert, error)
	OutstandingPaymentAlerts(ctx context.Context, branchID *uuid.UUID) ([]OutstandingPaymentAlert, error)
}

type balanceValidator struct {
	snapshots *SnapshotCache
	catalog   *Catalog
}

func NewBalanceValidator(snapshots *SnapshotCache, catalog *Catalog) BalanceValidator {
	return &balanceValidator{snapshots: snapshots, catalog: catalog}
}

func (v *balanceValidator) ValidateSale(ctx context.Context, item model.ItemRef, branchID uuid.UUID, requested decimal.Decimal, requirePaid bool) (*SaleValidation, error) {
	if err := item.Validate(); err != nil {
		return nil, invalidInput("%v", err)
	}
	if err := validateRequested(requested); err != nil {
		return nil, err
	}
	lots, err := v.snapshots.Lots(ctx, repository.LotFilter{ItemKey: item.Key(), BranchID: &branchID, OnlyWithStock: true})
	if err != nil {
		return nil, err
	}

	res := &SaleValidation{
		Item:          item,
		BranchID:      branchID,
		Requested:     requested,
		Available:     decimal.Zero,
		PaidAvailable: decimal.Zero,
		Shortfall:     decimal.Zero,
	}
	for i := range lots {
		res.Available = res.Available.Add(lots[i].CostMeasure())
		res.PaidAvailable = res.PaidAvailable.Add(paidMeasure(&lots[i]))
	}

	limit := res.Available
	if requirePaid {
		limit = res.PaidAvailable
	}
	res.CanSell = limit.GreaterThanOrEqual(requested)
	if !res.CanSell {
		res.Shortfall = requested.Sub(limit)
	}

	// Warn about unpaid lots the default FIFO draw would touch.
	plan, _ := planConsumption(FIFO().Order(lots), requested)
	for _, s := range plan {
		if s.Unpaid {
			lotID := s.LotID
			res.Warnings = append(res.Warnings, LedgerWarning{
				Code:    WarningUnpaidStock,
				LotID:   &lotID,
				Message: "stock from this lot is not yet paid to its supplier",
			})
		}
	}
	return res, nil
}

// paidMeasure is the share of a lot's holdings covered by payments, in the
// proportion AmountPaid/TotalCost.
func paidMeasure(lot *model.OwnershipLot) decimal.Decimal {
	measure := lot.CostMeasure()
	if !lot.AmountOwed.IsPositive() || !lot.TotalCost.IsPositive() {
		return measure
	}
	return measure.Mul(lot.AmountPaid).Div(lot.TotalCost)
}

func (v *balanceValidator) LowOwnershipAlerts(ctx context.Context, branchID *uuid.UUID, thresholdGrams decimal.Decimal) ([]LowOwnershipAlert, error) {
	if thresholdGrams.IsNegative() {
		return nil, invalidInput("threshold must not be negative")
	}
	lots, err := v.snapshots.Lots(ctx, repository.LotFilter{BranchID: branchID})
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		item   string
		branch uuid.UUID
	}
	groups := make(map[groupKey]*LowOwnershipAlert)
	order := make([]groupKey, 0)
	for i := range lots {
		lot := &lots[i]
		k := groupKey{item: lot.ItemKey, branch: lot.BranchID}
		g, ok := groups[k]
		if !ok {
			g = &LowOwnershipAlert{
				Item:      v.catalog.Describe(ctx, lot.Item()),
				BranchID:  lot.BranchID,
				Weight:    decimal.Zero,
				Quantity:  decimal.Zero,
				Threshold: thresholdGrams,
			}
			groups[k] = g
			order = append(order, k)
		}
		g.Weight = g.Weight.Add(lot.TotalWeight)
		g.Quantity = g.Quantity.Add(lot.TotalQuantity)
		g.Lots++
	}

	alerts := make([]LowOwnershipAlert, 0)
	for _, k := range order {
		if g := groups[k]; g.Weight.LessThan(thresholdGrams) {
			alerts = append(alerts, *g)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Weight.LessThan(alerts[j].Weight) })
	return alerts, nil
}

func (v *balanceValidator) OutstandingPaymentAlerts(ctx context.Context, branchID *uuid.UUID) ([]OutstandingPaymentAlert, error) {
	lots, err := v.snapshots.Lots(ctx, repository.LotFilter{BranchID: branchID, OnlyOwed: true})
	if err != nil {
		return nil, err
	}

	bySupplier := make(map[uuid.UUID]*OutstandingPaymentAlert)
	order := make([]uuid.UUID, 0)
	for i := range lots {
		lot := &lots[i]
		if !lot.AmountOwed.IsPositive() {
			continue
		}
		a, ok := bySupplier[lot.SupplierID]
		if !ok {
			a = &OutstandingPaymentAlert{
				SupplierID:  lot.SupplierID,
				BranchID:    branchID,
				AmountOwed:  decimal.Zero,
				OldestLotAt: lot.CreatedAt,
			}
			bySupplier[lot.SupplierID] = a
			order = append(order, lot.SupplierID)
		}
		a.AmountOwed = a.AmountOwed.Add(lot.AmountOwed)
		a.Lots++
		a.LotIDs = append(a.LotIDs, lot.ID)
		if lot.CreatedAt.Before(a.OldestLotAt) {
			a.OldestLotAt = lot.CreatedAt
		}
	}

	alerts := make([]OutstandingPaymentAlert, 0, len(order))
	for _, id := range order {
		a := bySupplier[id]
		a.AmountOwed = RoundMoney(a.AmountOwed)
		alerts = append(alerts, *a)
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].AmountOwed.GreaterThan(alerts[j].AmountOwed) })
	return alerts, nil
}
