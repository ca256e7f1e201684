package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SupplierRequest struct {
	Name                string          `json:"name"                  validate:"required,min=2"`
	TaxID               string          `json:"tax_id"                validate:"required"`
	Phone               *string         `json:"phone"`
	Email               *string         `json:"email"                 validate:"omitempty,email"`
	CreditLimit         decimal.Decimal `json:"credit_limit"          validate:"min=0"`
	CreditLimitEnforced bool            `json:"credit_limit_enforced"`
	OpeningBalance      decimal.Decimal `json:"opening_balance"       validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SupplierResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	TaxID               string          `json:"tax_id"`
	Phone               *string         `json:"phone"`
	Email               *string         `json:"email"`
	CreditLimit         decimal.Decimal `json:"credit_limit"`
	CreditLimitEnforced bool            `json:"credit_limit_enforced"`
	OpeningBalance      decimal.Decimal `json:"opening_balance"`
	Active              bool            `json:"active"`
}

type CreditCheckResponse struct {
	SupplierID       string          `json:"supplier_id"`
	Allowed          bool            `json:"allowed"`
	WouldExceed      bool            `json:"would_exceed"`
	Enforced         bool            `json:"enforced"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Additional       decimal.Decimal `json:"additional"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
	Limit            decimal.Decimal `json:"limit"`
}
