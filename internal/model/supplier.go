package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Supplier is a gold supplier with a credit line.
// CreditLimitEnforced=false turns limit breaches into warnings.
type Supplier struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                string    `gorm:"not null"`
	TaxID               string    `gorm:"column:tax_id;uniqueIndex;not null"`
	Phone               *string
	Email               *string
	CreditLimit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreditLimitEnforced bool            `gorm:"not null;default:false"`
	// OpeningBalance is debt carried over from before the ledger existed.
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Supplier) TableName() string { return "suppliers" }
