package service

import (
	"sort"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotSelector decides which lots an outbound movement draws from, and in
// which order.
type LotSelector interface {
	Name() string
	Order(lots []model.OwnershipLot) []model.OwnershipLot
}

type fifoSelector struct{}

// FIFO draws from the oldest lot first.
func FIFO() LotSelector { return fifoSelector{} }

func (fifoSelector) Name() string { return "fifo" }

func (fifoSelector) Order(lots []model.OwnershipLot) []model.OwnershipLot {
	return sortedByAge(lots, false)
}

type lifoSelector struct{}

// LIFO draws from the newest lot first.
func LIFO() LotSelector { return lifoSelector{} }

func (lifoSelector) Name() string { return "lifo" }

func (lifoSelector) Order(lots []model.OwnershipLot) []model.OwnershipLot {
	return sortedByAge(lots, true)
}

type supplierSelector struct{ supplierID uuid.UUID }

// SpecificSupplier only draws from lots of one supplier, oldest first.
func SpecificSupplier(supplierID uuid.UUID) LotSelector {
	return supplierSelector{supplierID: supplierID}
}

func (supplierSelector) Name() string { return "specific_supplier" }

func (s supplierSelector) Order(lots []model.OwnershipLot) []model.OwnershipLot {
	filtered := make([]model.OwnershipLot, 0, len(lots))
	for _, lot := range lots {
		if lot.SupplierID == s.supplierID {
			filtered = append(filtered, lot)
		}
	}
	return sortedByAge(filtered, false)
}

// SelectorByName resolves the strategy names accepted at the HTTP boundary.
func SelectorByName(name string, supplierID *uuid.UUID) (LotSelector, error) {
	switch name {
	case "", "fifo":
		return FIFO(), nil
	case "lifo":
		return LIFO(), nil
	case "specific_supplier":
		if supplierID == nil {
			return nil, invalidInput("supplier_id is required for the specific_supplier strategy")
		}
		return SpecificSupplier(*supplierID), nil
	}
	return nil, invalidInput("unknown lot selection strategy %q", name)
}

func sortedByAge(lots []model.OwnershipLot, newestFirst bool) []model.OwnershipLot {
	out := make([]model.OwnershipLot, len(lots))
	copy(out, lots)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// ConsumptionSlice is the part of an outbound quantity drawn from one lot.
type ConsumptionSlice struct {
	LotID      uuid.UUID
	SupplierID uuid.UUID
	// Measure is grams for raw gold, units for products.
	Measure  decimal.Decimal
	UnitCost decimal.Decimal
	Cost     decimal.Decimal
	// Unpaid is set when the lot still owes its supplier.
	Unpaid bool
}

// planConsumption walks ordered lots taking up to requested. It returns the
// slices and the total measure available across lots.
func planConsumption(ordered []model.OwnershipLot, requested decimal.Decimal) ([]ConsumptionSlice, decimal.Decimal) {
	available := decimal.Zero
	for i := range ordered {
		available = available.Add(ordered[i].CostMeasure())
	}

	remaining := requested
	slices := make([]ConsumptionSlice, 0)
	for i := range ordered {
		if !remaining.IsPositive() {
			break
		}
		lot := &ordered[i]
		measure := lot.CostMeasure()
		if !measure.IsPositive() {
			continue
		}
		take := minDecimal(remaining, measure)
		slices = append(slices, ConsumptionSlice{
			LotID:      lot.ID,
			SupplierID: lot.SupplierID,
			Measure:    take,
			UnitCost:   lot.UnitCost,
			Cost:       take.Mul(lot.UnitCost),
			Unpaid:     lot.AmountOwed.IsPositive(),
		})
		remaining = remaining.Sub(take)
	}
	return slices, available
}
