package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementReceipt               MovementType = "receipt"
	MovementSale                  MovementType = "sale"
	MovementPayment               MovementType = "payment"
	MovementConsolidation         MovementType = "consolidation"
	MovementKaratConversionDebit  MovementType = "karat_conversion_debit"
	MovementKaratConversionCredit MovementType = "karat_conversion_credit"
	MovementWaiver                MovementType = "waiver"
	MovementAdjustment            MovementType = "adjustment"
)

// OwnershipMovement is an append-only ledger entry. Rows are never updated or
// deleted once written.
//
// AmountChange is the signed change in the lot's AmountOwed; CostChange and
// PaidChange break it down (AmountChange = CostChange - PaidChange).
type OwnershipMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LotID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ownership_movements_lot_seq,priority:1"`
	Sequence       int64           `gorm:"not null;uniqueIndex:idx_ownership_movements_lot_seq,priority:2"`
	MovementType   MovementType    `gorm:"type:varchar(32);not null;index"`
	WeightChange   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	QuantityChange decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	AmountChange   decimal.Decimal `gorm:"type:decimal(24,8);not null"`
	CostChange     decimal.Decimal `gorm:"type:decimal(24,8);not null"`
	PaidChange     decimal.Decimal `gorm:"type:decimal(24,8);not null"`

	WeightBalanceAfter   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	QuantityBalanceAfter decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	AmountOwedAfter      decimal.Decimal `gorm:"type:decimal(24,8);not null"`
	UnitCostAfter        decimal.Decimal `gorm:"type:decimal(24,8);not null"`

	ReferenceNumber string     `gorm:"not null;index"`
	CorrelationID   *uuid.UUID `gorm:"type:uuid;index"` // conversion / consolidation / waiver id
	CreatedBy       string     `gorm:"not null"`
	Timestamp       time.Time  `gorm:"not null;index"`
}

func (OwnershipMovement) TableName() string { return "ownership_movements" }
