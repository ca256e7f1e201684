package service

import (
	"strings"
	"time"

	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementInput describes one balance change on one lot.
type MovementInput struct {
	Type           model.MovementType
	WeightChange   decimal.Decimal
	QuantityChange decimal.Decimal
	// CostChange is the change to the lot's payable basis (TotalCost).
	CostChange decimal.Decimal
	PaidChange decimal.Decimal
	// UnitCostAfter replaces the lot's unit cost; nil keeps it.
	UnitCostAfter *decimal.Decimal
	Reference     string
	CorrelationID *uuid.UUID
	Actor         string
}

// MovementRecorder is the only writer of lot balances. Every change goes
// through Record, which appends the movement and updates the lot in the same
// transaction, so a lot's balances always equal the sum of its history.
type MovementRecorder struct {
	now func() time.Time
}

func NewMovementRecorder(now func() time.Time) *MovementRecorder {
	if now == nil {
		now = time.Now
	}
	return &MovementRecorder{now: now}
}

// Record applies in to lot (mutating it) and persists both the movement and
// the lot through tx. Nothing is written if the result would be invalid.
// Money changes are rounded to the stored scale; weight and quantity changes
// must already fit it.
func (r *MovementRecorder) Record(tx repository.LedgerTx, lot *model.OwnershipLot, in MovementInput) (*model.OwnershipMovement, error) {
	if strings.TrimSpace(in.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	if lot.IsDepleted() {
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot), "lot %s is depleted", lot.ID)
	}
	if !fitsWeightScale(in.WeightChange) || !fitsWeightScale(in.QuantityChange) {
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot),
			"weight change %s or quantity change %s has more than %d decimals", in.WeightChange, in.QuantityChange, WeightPlaces)
	}
	in.CostChange = roundStored(in.CostChange)
	in.PaidChange = roundStored(in.PaidChange)
	if in.UnitCostAfter != nil {
		unitCost := roundStored(*in.UnitCostAfter)
		in.UnitCostAfter = &unitCost
	}

	weight := lot.TotalWeight.Add(in.WeightChange)
	quantity := lot.TotalQuantity.Add(in.QuantityChange)
	cost := lot.TotalCost.Add(in.CostChange)
	paid := lot.AmountPaid.Add(in.PaidChange)
	owed := cost.Sub(paid)

	switch {
	case weight.IsNegative():
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot), "weight would become negative (%s)", weight)
	case quantity.IsNegative():
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot), "quantity would become negative (%s)", quantity)
	case paid.IsNegative():
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot), "amount paid would become negative (%s)", paid)
	case owed.IsNegative():
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot), "amount paid would exceed total cost by %s", owed.Neg())
	}

	unitCost := lot.UnitCost
	if in.UnitCostAfter != nil {
		unitCost = *in.UnitCostAfter
	}
	if unitCost.IsNegative() {
		return nil, newLedgerError(KindInvalidMovement, snapshotOf(lot), "unit cost would become negative")
	}

	now := r.now()
	amountChange := owed.Sub(lot.AmountOwed)

	lot.TotalWeight = weight
	lot.TotalQuantity = quantity
	lot.TotalCost = cost
	lot.AmountPaid = paid
	lot.AmountOwed = owed
	lot.UnitCost = unitCost
	lot.LastMovementAt = now
	if lot.ReachedZero() && lot.Status != model.LotDepleted {
		lot.Status = model.LotDepleted
		lot.DepletedAt = &now
	}

	seq, err := tx.NextMovementSequence(lot.ID)
	if err != nil {
		return nil, err
	}
	movement := &model.OwnershipMovement{
		ID:                   uuid.New(),
		LotID:                lot.ID,
		Sequence:             seq,
		MovementType:         in.Type,
		WeightChange:         in.WeightChange,
		QuantityChange:       in.QuantityChange,
		AmountChange:         amountChange,
		CostChange:           in.CostChange,
		PaidChange:           in.PaidChange,
		WeightBalanceAfter:   weight,
		QuantityBalanceAfter: quantity,
		AmountOwedAfter:      owed,
		UnitCostAfter:        unitCost,
		ReferenceNumber:      in.Reference,
		CorrelationID:        in.CorrelationID,
		CreatedBy:            in.Actor,
		Timestamp:            now,
	}
	if err := tx.CreateMovement(movement); err != nil {
		return nil, err
	}
	if err := tx.UpdateLot(lot); err != nil {
		return nil, err
	}
	return movement, nil
}

func snapshotOf(lot *model.OwnershipLot) *BalanceSnapshot {
	id := lot.ID
	return &BalanceSnapshot{
		LotID:      &id,
		Weight:     lot.TotalWeight,
		Quantity:   lot.TotalQuantity,
		AmountOwed: lot.AmountOwed,
		AmountPaid: lot.AmountPaid,
		Available:  lot.CostMeasure(),
	}
}
