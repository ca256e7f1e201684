package service

import (
	"context"
	"errors"
	"testing"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stub registry ────────────────────────────────────────────────────────────

type stubRegistry struct {
	profiles map[uuid.UUID]CreditProfile
}

func (r *stubRegistry) CreditProfile(_ context.Context, id uuid.UUID) (*CreditProfile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, notFound("supplier %s not found", id)
	}
	return &p, nil
}

var _ SupplierRegistry = (*stubRegistry)(nil)

func TestCheckCredit(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name        string
		profile     CreditProfile
		additional  string
		allowed     bool
		wouldExceed bool
	}{
		{"within enforced limit", CreditProfile{Limit: dec("1000"), Enforced: true, CurrentBalance: dec("200")}, "800", true, false},
		{"over enforced limit", CreditProfile{Limit: dec("1000"), Enforced: true, CurrentBalance: dec("200")}, "800.01", false, true},
		{"over advisory limit", CreditProfile{Limit: dec("500"), Enforced: false, CurrentBalance: dec("400")}, "200", true, true},
		{"zero advisory limit is unlimited", CreditProfile{Limit: decimal.Zero, Enforced: false, CurrentBalance: dec("9000")}, "1000", true, false},
		{"zero enforced limit blocks any debt", CreditProfile{Limit: decimal.Zero, Enforced: true, CurrentBalance: decimal.Zero}, "0.01", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.profile.SupplierID = id
			guard := NewSupplierCreditGuard(&stubRegistry{profiles: map[uuid.UUID]CreditProfile{id: tc.profile}})

			check, err := guard.CheckCredit(context.Background(), id, dec(tc.additional))
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, check.Allowed)
			assert.Equal(t, tc.wouldExceed, check.WouldExceed)
			requireDecimal(t, tc.profile.CurrentBalance.Add(dec(tc.additional)).String(), check.ProjectedBalance)
		})
	}
}

func TestCheckCredit_MerchantAlwaysAllowed(t *testing.T) {
	guard := NewSupplierCreditGuard(&stubRegistry{})

	check, err := guard.CheckCredit(context.Background(), model.MerchantSupplierID, dec("1000000"))
	require.NoError(t, err)
	assert.True(t, check.Allowed)

	key, err := guard.ScopeKey(context.Background(), model.MerchantSupplierID)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestScopeKey_OnlyForEnforcedSuppliers(t *testing.T) {
	enforced, advisory := uuid.New(), uuid.New()
	guard := NewSupplierCreditGuard(&stubRegistry{profiles: map[uuid.UUID]CreditProfile{
		enforced: {SupplierID: enforced, Enforced: true},
		advisory: {SupplierID: advisory},
	}})

	key, err := guard.ScopeKey(context.Background(), enforced)
	require.NoError(t, err)
	assert.Equal(t, "supplier:"+enforced.String(), key)

	key, err = guard.ScopeKey(context.Background(), advisory)
	require.NoError(t, err)
	assert.Empty(t, key)

	_, err = guard.ScopeKey(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHeadroom_NeverNegative(t *testing.T) {
	c := &CreditCheck{Limit: dec("100"), CurrentBalance: dec("150")}
	assert.True(t, c.Headroom().IsZero())
	c.CurrentBalance = dec("40")
	requireDecimal(t, "60", c.Headroom())
}

// ── Through the ledger ───────────────────────────────────────────────────────

func TestReceipt_EnforcedCreditLimitBlocks(t *testing.T) {
	s := newSupplier("aurum", "1000", true)
	f := newFixture(t, s)
	f.receiveGold(t, 18, s.ID, "8", "100", "0", false)

	_, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, SupplierID: s.ID,
		Weight: dec("3"), UnitCost: dec("100"), Actor: "clerk1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreditLimitExceeded))

	var le *LedgerError
	require.True(t, errors.As(err, &le))
	requireDecimal(t, "800", le.Balance.AmountOwed)
	requireDecimal(t, "200", le.Balance.Available)

	// Paying part of it up front keeps the new debt within the limit.
	res, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, SupplierID: s.ID,
		Weight: dec("3"), UnitCost: dec("100"), PaidAmount: dec("100"), Actor: "clerk1",
	})
	require.NoError(t, err)
	requireDecimal(t, "1000", res.Lot.AmountOwed)
	assert.Empty(t, res.Warnings)
}

func TestReceipt_AdvisoryCreditLimitWarns(t *testing.T) {
	s := newSupplier("aurum", "500", false)
	f := newFixture(t, s)

	res := f.receiveGold(t, 18, s.ID, "8", "100", "0", false)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningCreditLimitExceeded, res.Warnings[0].Code)
	assert.True(t, res.Credit.WouldExceed)
	requireDecimal(t, "800", res.Lot.AmountOwed)
}

func TestReceipt_OpeningBalanceCountsTowardLimit(t *testing.T) {
	s := newSupplier("aurum", "1000", true)
	s.OpeningBalance = dec("950")
	f := newFixture(t, s)

	_, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, SupplierID: s.ID,
		Weight: dec("1"), UnitCost: dec("100"), Actor: "clerk1",
	})
	assert.True(t, errors.Is(err, ErrCreditLimitExceeded))
}

func TestReceipt_UnknownSupplier(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, SupplierID: uuid.New(),
		Weight: dec("1"), UnitCost: dec("100"), Actor: "clerk1",
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}
