package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsolidationBatch records which lots were merged into which target lot and
// at what blended unit cost.
type ConsolidationBatch struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemKey         string          `gorm:"not null;index"`
	BranchID        uuid.UUID       `gorm:"type:uuid;not null"`
	SupplierID      uuid.UUID       `gorm:"type:uuid;not null"`
	TargetLotID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(24,8);not null"`
	TotalWeight     decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	TotalQuantity   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	ReferenceNumber string
	CreatedBy       string `gorm:"not null"`
	CreatedAt       time.Time

	// SourceLotIDs is persisted through ConsolidationSource rows.
	SourceLotIDs []uuid.UUID `gorm:"-"`
}

func (ConsolidationBatch) TableName() string { return "consolidation_batches" }

// ConsolidationSource is one merged lot of a batch, with the balances it
// carried into the target.
type ConsolidationSource struct {
	BatchID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LotID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Weight   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitCost decimal.Decimal `gorm:"type:decimal(24,8);not null"`
}

func (ConsolidationSource) TableName() string { return "consolidation_sources" }
