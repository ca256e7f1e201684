package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotStatus tracks the lifecycle of a lot. Lots are never deleted.
type LotStatus string

const (
	// LotOpen is the single lot per identity that receives new inbound stock.
	LotOpen LotStatus = "open"
	// LotSealed lots keep their balances but take no further receipts.
	LotSealed LotStatus = "sealed"
	// LotDepleted lots hold no stock and owe nothing; kept for audit only.
	LotDepleted LotStatus = "depleted"
)

// OwnershipLot is the unit of ownership and cost tracking.
//
// Money invariant: AmountOwed = TotalCost - AmountPaid, with 0 <= AmountPaid <= TotalCost.
// TotalCost is the payable basis billed to the lot; until stock leaves the lot it
// equals TotalWeight*UnitCost (raw gold) or TotalQuantity*UnitCost (products).
type OwnershipLot struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ItemKind    ItemKind   `gorm:"type:varchar(16);not null"`
	ItemKey     string     `gorm:"not null;index:idx_ownership_lots_identity,priority:1"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index"`
	KaratTypeID *int       `gorm:"index"`
	BranchID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_ownership_lots_identity,priority:2"`
	SupplierID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_ownership_lots_identity,priority:3"`
	Status      LotStatus  `gorm:"type:varchar(16);not null;default:'open';index"`
	Currency    string     `gorm:"type:varchar(3);not null"`

	TotalWeight   decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0"`
	AmountOwed    decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0"`

	// Version is bumped on every write; a stale version on update is a conflict.
	Version int64 `gorm:"not null;default:0"`

	CreatedAt      time.Time
	LastMovementAt time.Time
	SealedAt       *time.Time
	DepletedAt     *time.Time
}

func (OwnershipLot) TableName() string { return "ownership_lots" }

// NewLot builds an empty open lot for identity.
func NewLot(identity LotIdentity, currency string, now time.Time) *OwnershipLot {
	lot := &OwnershipLot{
		ID:             uuid.New(),
		ItemKind:       identity.Item.Kind,
		ItemKey:        identity.Item.Key(),
		BranchID:       identity.BranchID,
		SupplierID:     identity.SupplierID,
		Status:         LotOpen,
		Currency:       currency,
		TotalWeight:    decimal.Zero,
		TotalQuantity:  decimal.Zero,
		UnitCost:       decimal.Zero,
		TotalCost:      decimal.Zero,
		AmountPaid:     decimal.Zero,
		AmountOwed:     decimal.Zero,
		CreatedAt:      now,
		LastMovementAt: now,
	}
	if identity.Item.IsProduct() {
		pid := identity.Item.ProductID
		lot.ProductID = &pid
	} else {
		karat := identity.Item.KaratTypeID
		lot.KaratTypeID = &karat
	}
	return lot
}

// Item rebuilds the ItemRef from the persisted columns.
func (l *OwnershipLot) Item() ItemRef {
	if l.ItemKind == ItemKindProduct && l.ProductID != nil {
		return ProductRef(*l.ProductID)
	}
	if l.KaratTypeID != nil {
		return RawGoldRef(*l.KaratTypeID)
	}
	ref, _ := ParseItemKey(l.ItemKey)
	return ref
}

func (l *OwnershipLot) Identity() LotIdentity {
	return LotIdentity{Item: l.Item(), BranchID: l.BranchID, SupplierID: l.SupplierID}
}

// CostMeasure is what UnitCost is expressed against: units for products,
// grams for raw gold.
func (l *OwnershipLot) CostMeasure() decimal.Decimal {
	if l.ItemKind == ItemKindProduct {
		return l.TotalQuantity
	}
	return l.TotalWeight
}

func (l *OwnershipLot) HasStock() bool { return l.CostMeasure().IsPositive() }

func (l *OwnershipLot) IsDepleted() bool { return l.Status == LotDepleted }

// ReachedZero reports whether nothing is held and nothing is owed.
func (l *OwnershipLot) ReachedZero() bool {
	return l.TotalWeight.IsZero() && l.TotalQuantity.IsZero() && l.AmountOwed.IsZero()
}
