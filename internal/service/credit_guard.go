package service

import (
	"context"
	"errors"

	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditProfile is what the supplier registry knows about a supplier's credit.
type CreditProfile struct {
	SupplierID     uuid.UUID
	Name           string
	Limit          decimal.Decimal
	Enforced       bool
	CurrentBalance decimal.Decimal
}

// SupplierRegistry supplies credit terms and the supplier's current balance.
type SupplierRegistry interface {
	CreditProfile(ctx context.Context, supplierID uuid.UUID) (*CreditProfile, error)
}

// CreditCheck is the outcome of a credit check.
type CreditCheck struct {
	SupplierID       uuid.UUID       `json:"supplier_id"`
	Allowed          bool            `json:"allowed"`
	WouldExceed      bool            `json:"would_exceed"`
	Enforced         bool            `json:"enforced"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Additional       decimal.Decimal `json:"additional"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
	Limit            decimal.Decimal `json:"limit"`
}

// Headroom is how much more can be owed before the limit is reached.
func (c *CreditCheck) Headroom() decimal.Decimal {
	h := c.Limit.Sub(c.CurrentBalance)
	if h.IsNegative() {
		return decimal.Zero
	}
	return h
}

type SupplierCreditGuard interface {
	// CheckCredit tests whether owing `additional` more to the supplier stays
	// within its limit. Non-enforcing suppliers are always allowed.
	CheckCredit(ctx context.Context, supplierID uuid.UUID, additional decimal.Decimal) (*CreditCheck, error)
	// ScopeKey is the extra lock a receipt must hold for enforcing suppliers,
	// or "" when none is needed.
	ScopeKey(ctx context.Context, supplierID uuid.UUID) (string, error)
}

type supplierCreditGuard struct {
	registry SupplierRegistry
}

func NewSupplierCreditGuard(registry SupplierRegistry) SupplierCreditGuard {
	return &supplierCreditGuard{registry: registry}
}

func (g *supplierCreditGuard) CheckCredit(ctx context.Context, supplierID uuid.UUID, additional decimal.Decimal) (*CreditCheck, error) {
	if additional.IsNegative() {
		return nil, invalidInput("additional amount must not be negative")
	}
	if supplierID == model.MerchantSupplierID {
		return &CreditCheck{SupplierID: supplierID, Allowed: true, Additional: additional, ProjectedBalance: additional}, nil
	}
	profile, err := g.registry.CreditProfile(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	projected := profile.CurrentBalance.Add(additional)
	check := &CreditCheck{
		SupplierID:       supplierID,
		Enforced:         profile.Enforced,
		CurrentBalance:   profile.CurrentBalance,
		Additional:       additional,
		ProjectedBalance: projected,
		Limit:            profile.Limit,
	}
	// A zero limit on a non-enforcing supplier means "no limit configured".
	if profile.Enforced || profile.Limit.IsPositive() {
		check.WouldExceed = projected.GreaterThan(profile.Limit)
	}
	check.Allowed = !(check.WouldExceed && check.Enforced)
	return check, nil
}

func (g *supplierCreditGuard) ScopeKey(ctx context.Context, supplierID uuid.UUID) (string, error) {
	if supplierID == model.MerchantSupplierID {
		return "", nil
	}
	profile, err := g.registry.CreditProfile(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if !profile.Enforced {
		return "", nil
	}
	return "supplier:" + supplierID.String(), nil
}

// supplierRegistry derives the current balance from the ledger: the
// supplier's opening balance plus everything still owed on its lots.
type supplierRegistry struct {
	suppliers repository.SupplierRepository
	ledger    repository.LedgerRepository
}

func NewSupplierRegistry(suppliers repository.SupplierRepository, ledger repository.LedgerRepository) SupplierRegistry {
	return &supplierRegistry{suppliers: suppliers, ledger: ledger}
}

func (r *supplierRegistry) CreditProfile(ctx context.Context, supplierID uuid.UUID) (*CreditProfile, error) {
	s, err := r.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("supplier %s not found", supplierID)
		}
		return nil, err
	}
	owed, err := r.ledger.SumOwedBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return &CreditProfile{
		SupplierID:     s.ID,
		Name:           s.Name,
		Limit:          s.CreditLimit,
		Enforced:       s.CreditLimitEnforced,
		CurrentBalance: s.OpeningBalance.Add(owed),
	}, nil
}
