package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KaratConversion links the debit movement on the source karat lot with the
// credit movement on the destination karat lot of one conversion.
type KaratConversion struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BranchID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	FromKaratTypeID  int             `gorm:"not null"`
	ToKaratTypeID    int             `gorm:"not null"`
	FromPurity       decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	ToPurity         decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	Rate             decimal.Decimal `gorm:"type:decimal(18,10);not null"` // purity(from) / purity(to)
	FromWeight       decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	FineWeight       decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	ToWeight         decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	CostValue        decimal.Decimal `gorm:"type:decimal(24,8);not null"`
	SourceLotID      uuid.UUID       `gorm:"type:uuid;not null"`
	DestinationLotID uuid.UUID       `gorm:"type:uuid;not null"`
	DebitMovementID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CreditMovementID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	ReferenceNumber  string
	CreatedBy        string `gorm:"not null"`
	CreatedAt        time.Time
}

func (KaratConversion) TableName() string { return "karat_conversions" }
