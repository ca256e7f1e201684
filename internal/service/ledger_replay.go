package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotTotals is one set of lot balances.
type LotTotals struct {
	Weight     decimal.Decimal `json:"weight"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
}

// ReplayReport compares a lot's stored balances with the totals rebuilt from
// its movement history.
type ReplayReport struct {
	LotID      uuid.UUID `json:"lot_id"`
	Movements  int       `json:"movements"`
	Expected   LotTotals `json:"expected"`
	Actual     LotTotals `json:"actual"`
	Consistent bool      `json:"consistent"`
	Drift      []string  `json:"drift,omitempty"`
}

// ReplayLot rebuilds balances by summing the lot's movements in sequence
// order and checks every running balance recorded along the way.
func (l *ownershipLedger) ReplayLot(ctx context.Context, lotID uuid.UUID) (*ReplayReport, error) {
	lot, err := l.findLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	movements, err := l.repo.ListMovements(ctx, lotID)
	if err != nil {
		return nil, err
	}

	exp := LotTotals{
		Weight: decimal.Zero, Quantity: decimal.Zero,
		TotalCost: decimal.Zero, AmountPaid: decimal.Zero, AmountOwed: decimal.Zero,
	}
	report := &ReplayReport{LotID: lotID, Movements: len(movements)}
	for i, m := range movements {
		if m.Sequence != int64(i+1) {
			report.Drift = append(report.Drift, fmt.Sprintf("movement %s has sequence %d, expected %d", m.ID, m.Sequence, i+1))
		}
		exp.Weight = exp.Weight.Add(m.WeightChange)
		exp.Quantity = exp.Quantity.Add(m.QuantityChange)
		exp.TotalCost = exp.TotalCost.Add(m.CostChange)
		exp.AmountPaid = exp.AmountPaid.Add(m.PaidChange)
		exp.AmountOwed = exp.AmountOwed.Add(m.AmountChange)

		if !m.WeightBalanceAfter.Equal(exp.Weight) {
			report.Drift = append(report.Drift, fmt.Sprintf("movement %d: weight after %s, replay %s", m.Sequence, m.WeightBalanceAfter, exp.Weight))
		}
		if !m.QuantityBalanceAfter.Equal(exp.Quantity) {
			report.Drift = append(report.Drift, fmt.Sprintf("movement %d: quantity after %s, replay %s", m.Sequence, m.QuantityBalanceAfter, exp.Quantity))
		}
		if !m.AmountOwedAfter.Equal(exp.AmountOwed) {
			report.Drift = append(report.Drift, fmt.Sprintf("movement %d: owed after %s, replay %s", m.Sequence, m.AmountOwedAfter, exp.AmountOwed))
		}
		if exp.Weight.IsNegative() || exp.Quantity.IsNegative() || exp.AmountOwed.IsNegative() {
			report.Drift = append(report.Drift, fmt.Sprintf("movement %d: balance went negative", m.Sequence))
		}
	}

	report.Expected = exp
	report.Actual = LotTotals{
		Weight:     lot.TotalWeight,
		Quantity:   lot.TotalQuantity,
		TotalCost:  lot.TotalCost,
		AmountPaid: lot.AmountPaid,
		AmountOwed: lot.AmountOwed,
	}
	check := func(name string, want, got decimal.Decimal) {
		if !want.Equal(got) {
			report.Drift = append(report.Drift, fmt.Sprintf("%s: stored %s, replay %s", name, got, want))
		}
	}
	check("weight", exp.Weight, lot.TotalWeight)
	check("quantity", exp.Quantity, lot.TotalQuantity)
	check("total_cost", exp.TotalCost, lot.TotalCost)
	check("amount_paid", exp.AmountPaid, lot.AmountPaid)
	check("amount_owed", exp.AmountOwed, lot.AmountOwed)
	if !lot.AmountOwed.Equal(lot.TotalCost.Sub(lot.AmountPaid)) {
		report.Drift = append(report.Drift, "amount_owed differs from total_cost - amount_paid")
	}

	report.Consistent = len(report.Drift) == 0
	return report, nil
}
