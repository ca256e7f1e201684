package service

import (
	"errors"
	"sync"
	"testing"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Receipts ─────────────────────────────────────────────────────────────────

func TestReceipt_BlendsUnitCostIntoOpenLot(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)

	first := f.receiveGold(t, 18, s.ID, "5", "100", "0", false)
	second := f.receiveGold(t, 18, s.ID, "5", "200", "0", false)

	assert.Equal(t, first.Lot.ID, second.Lot.ID, "same identity must reuse the open lot")
	lot := f.lot(t, second.Lot.ID)
	requireDecimal(t, "10", lot.TotalWeight)
	requireDecimal(t, "150", lot.UnitCost)
	requireDecimal(t, "1500", lot.TotalCost)
	requireDecimal(t, "1500", lot.AmountOwed)
	assert.Equal(t, model.LotOpen, lot.Status)
	assert.Len(t, second.Movements, 1, "unpaid receipt records no payment")
}

func TestReceipt_MerchantStockIsFullyPaid(t *testing.T) {
	f := newFixture(t)

	res := f.receiveGold(t, 21, model.MerchantSupplierID, "4", "50", "0", false)

	requireDecimal(t, "200", res.Lot.AmountPaid)
	assert.True(t, res.Lot.AmountOwed.IsZero())
	require.Len(t, res.Movements, 2)
	assert.Equal(t, model.MovementReceipt, res.Movements[0].MovementType)
	assert.Equal(t, model.MovementPayment, res.Movements[1].MovementType)
	assert.True(t, res.Credit.Allowed)
}

func TestReceipt_PartialPaymentLeavesBalanceOwed(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)

	res := f.receiveGold(t, 18, s.ID, "10", "100", "400", false)

	requireDecimal(t, "400", res.Lot.AmountPaid)
	requireDecimal(t, "600", res.Lot.AmountOwed)
}

func TestReceipt_PaidAmountAboveCost_Rejected(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)

	_, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, SupplierID: s.ID,
		Weight: dec("1"), UnitCost: dec("100"), PaidAmount: dec("150"), Actor: "clerk1",
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestReceipt_ProductNeedsWholeUnits(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.ProductRef(uuid.New()), BranchID: f.branch, SupplierID: model.MerchantSupplierID,
		Weight: dec("3"), Quantity: dec("1.5"), UnitCost: dec("10"), Actor: "clerk1",
	})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestReceipt_SeparateLotSealsOpenLot(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)

	first := f.receiveGold(t, 18, s.ID, "3", "100", "0", false)
	second := f.receiveGold(t, 18, s.ID, "2", "300", "0", true)

	require.NotEqual(t, first.Lot.ID, second.Lot.ID)
	assert.Equal(t, model.LotSealed, f.lot(t, first.Lot.ID).Status)
	assert.Equal(t, model.LotOpen, f.lot(t, second.Lot.ID).Status)
	requireDecimal(t, "100", f.lot(t, first.Lot.ID).UnitCost)
	requireDecimal(t, "300", f.lot(t, second.Lot.ID).UnitCost)

	item := model.RawGoldRef(18)
	lots, err := f.ledger.ActiveLots(f.ctx, LotQuery{Item: &item, BranchID: &f.branch})
	require.NoError(t, err)
	assert.Len(t, lots, 2)
}

func TestGetOrCreateLot_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	identity := model.LotIdentity{Item: model.RawGoldRef(22), BranchID: f.branch, SupplierID: model.MerchantSupplierID}

	a, err := f.ledger.GetOrCreateLot(f.ctx, identity)
	require.NoError(t, err)
	b, err := f.ledger.GetOrCreateLot(f.ctx, identity)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.True(t, b.TotalWeight.IsZero())
}

func TestGetOrCreateLot_RequiresBranch(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.GetOrCreateLot(f.ctx, model.LotIdentity{Item: model.RawGoldRef(22)})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

// ── Payments ─────────────────────────────────────────────────────────────────

func TestPayment_ReducesAmountOwed(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	rcv := f.receiveGold(t, 18, s.ID, "10", "100", "0", false)

	res, err := f.ledger.ApplyPayment(f.ctx, PaymentRequest{LotID: rcv.Lot.ID, Amount: dec("250"), Actor: "manager1"})
	require.NoError(t, err)

	requireDecimal(t, "250", res.Lot.AmountPaid)
	requireDecimal(t, "750", res.Lot.AmountOwed)
	requireDecimal(t, "-250", res.Movement.AmountChange)
}

func TestPayment_ExceedingOwed_Rejected(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	rcv := f.receiveGold(t, 18, s.ID, "2", "100", "0", false)

	_, err := f.ledger.ApplyPayment(f.ctx, PaymentRequest{LotID: rcv.Lot.ID, Amount: dec("200.01"), Actor: "manager1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentExceedsOwed))

	var le *LedgerError
	require.True(t, errors.As(err, &le))
	requireDecimal(t, "200", le.Balance.Available)

	lot := f.lot(t, rcv.Lot.ID)
	requireDecimal(t, "200", lot.AmountOwed, "rejected payment must not change the lot")
}

func TestPayment_UnknownLot_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ApplyPayment(f.ctx, PaymentRequest{LotID: uuid.New(), Amount: dec("1"), Actor: "manager1"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLot_DepletesOnceSoldAndPaid(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	rcv := f.receiveGold(t, 18, s.ID, "2", "100", "0", false)

	_, err := f.ledger.ApplySale(f.ctx, SaleRequest{Item: model.RawGoldRef(18), BranchID: f.branch, Weight: dec("2"), Actor: "clerk1"})
	require.NoError(t, err)
	assert.Equal(t, model.LotOpen, f.lot(t, rcv.Lot.ID).Status, "stock is gone but the supplier is still owed")

	_, err = f.ledger.ApplyPayment(f.ctx, PaymentRequest{LotID: rcv.Lot.ID, Amount: dec("200"), Actor: "manager1"})
	require.NoError(t, err)

	lot := f.lot(t, rcv.Lot.ID)
	assert.Equal(t, model.LotDepleted, lot.Status)
	assert.NotNil(t, lot.DepletedAt)

	_, err = f.ledger.ApplyAdjustment(f.ctx, AdjustmentRequest{LotID: lot.ID, WeightChange: dec("1"), Reason: "found", Actor: "manager1"})
	assert.Equal(t, KindInvalidMovement, KindOf(err), "depleted lots take no movements")
}

// ── Sales ────────────────────────────────────────────────────────────────────

func TestSale_FIFODrawsOldestLotFirst(t *testing.T) {
	a := newSupplier("aurum", "0", false)
	b := newSupplier("bullion", "0", false)
	f := newFixture(t, a, b)
	older := f.receiveGold(t, 18, a.ID, "3", "100", "0", false)
	newer := f.receiveGold(t, 18, b.ID, "2", "300", "0", false)

	res, err := f.ledger.ApplySale(f.ctx, SaleRequest{Item: model.RawGoldRef(18), BranchID: f.branch, Weight: dec("4"), Actor: "clerk1"})
	require.NoError(t, err)

	require.Len(t, res.Slices, 2)
	assert.Equal(t, older.Lot.ID, res.Slices[0].LotID)
	requireDecimal(t, "3", res.Slices[0].Weight)
	assert.Equal(t, newer.Lot.ID, res.Slices[1].LotID)
	requireDecimal(t, "1", res.Slices[1].Weight)
	requireDecimal(t, "600", res.TotalCost)
	assert.Len(t, res.Warnings, 2, "both lots are unpaid")

	requireDecimal(t, "0", f.lot(t, older.Lot.ID).TotalWeight)
	requireDecimal(t, "1", f.lot(t, newer.Lot.ID).TotalWeight)
}

func TestSale_SpecificSupplierOnlyTouchesThatSupplier(t *testing.T) {
	a := newSupplier("aurum", "0", false)
	b := newSupplier("bullion", "0", false)
	f := newFixture(t, a, b)
	f.receiveGold(t, 18, a.ID, "3", "100", "300", false)
	fromB := f.receiveGold(t, 18, b.ID, "2", "300", "600", false)

	res, err := f.ledger.ApplySale(f.ctx, SaleRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, Weight: dec("2"),
		Selector: SpecificSupplier(b.ID), Actor: "clerk1",
	})
	require.NoError(t, err)
	require.Len(t, res.Slices, 1)
	assert.Equal(t, fromB.Lot.ID, res.Slices[0].LotID)
	assert.Empty(t, res.Warnings)
}

func TestSale_InsufficientOwnership_LeavesBalances(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	rcv := f.receiveGold(t, 18, s.ID, "5", "100", "0", false)

	_, err := f.ledger.ApplySale(f.ctx, SaleRequest{Item: model.RawGoldRef(18), BranchID: f.branch, Weight: dec("5.001"), Actor: "clerk1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientOwnership))

	var le *LedgerError
	require.True(t, errors.As(err, &le))
	requireDecimal(t, "5", le.Balance.Available)
	requireDecimal(t, "5.001", le.Balance.Requested)

	requireDecimal(t, "5", f.lot(t, rcv.Lot.ID).TotalWeight)
	history, err := f.ledger.MovementHistory(f.ctx, rcv.Lot.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSale_NothingOwned(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ApplySale(f.ctx, SaleRequest{Item: model.RawGoldRef(24), BranchID: f.branch, Weight: dec("1"), Actor: "clerk1"})
	assert.True(t, errors.Is(err, ErrInsufficientOwnership))
}

func TestSale_ProductWeightLeavesPerUnit(t *testing.T) {
	f := newFixture(t)
	product := model.ProductRef(uuid.New())
	rcv, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: product, BranchID: f.branch, SupplierID: model.MerchantSupplierID,
		Weight: dec("10"), Quantity: dec("4"), UnitCost: dec("500"), Actor: "clerk1",
	})
	require.NoError(t, err)

	res, err := f.ledger.ApplySale(f.ctx, SaleRequest{Item: product, BranchID: f.branch, Quantity: dec("1"), Actor: "clerk1"})
	require.NoError(t, err)
	requireDecimal(t, "2.5", res.Slices[0].Weight)
	requireDecimal(t, "500", res.TotalCost)

	res, err = f.ledger.ApplySale(f.ctx, SaleRequest{Item: product, BranchID: f.branch, Quantity: dec("3"), Actor: "clerk1"})
	require.NoError(t, err)
	requireDecimal(t, "7.5", res.Slices[0].Weight, "last units take the remaining weight")

	lot := f.lot(t, rcv.Lot.ID)
	assert.True(t, lot.TotalWeight.IsZero())
	assert.True(t, lot.TotalQuantity.IsZero())
	assert.Equal(t, model.LotDepleted, lot.Status)
}

func TestSale_ConcurrentSalesNeverOversell(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	rcv := f.receiveGold(t, 18, s.ID, "10", "100", "0", false)

	const attempts = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.ApplySale(f.ctx, SaleRequest{
				Item: model.RawGoldRef(18), BranchID: f.branch, Weight: decimal.NewFromInt(1), Actor: "clerk1",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	for _, err := range failures {
		assert.True(t, errors.Is(err, ErrInsufficientOwnership), "unexpected failure: %v", err)
	}
	lot := f.lot(t, rcv.Lot.ID)
	assert.True(t, lot.TotalWeight.IsZero())

	report, err := f.ledger.ReplayLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "drift: %v", report.Drift)
	assert.Equal(t, 11, report.Movements)
}

// ── Waivers ──────────────────────────────────────────────────────────────────

func TestWaiver_SettlesSupplierDebtWithMerchantStock(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	merchant := f.receiveGold(t, 18, model.MerchantSupplierID, "10", "100", "0", false)
	owed := f.receiveGold(t, 18, s.ID, "5", "120", "0", false)

	res, err := f.ledger.ApplyWaiver(f.ctx, WaiverRequest{
		SourceLotID: merchant.Lot.ID, TargetLotID: owed.Lot.ID, Weight: dec("3"), Actor: "manager1",
	})
	require.NoError(t, err)

	requireDecimal(t, "300", res.SettledValue)
	requireDecimal(t, "7", res.SourceLot.TotalWeight)
	requireDecimal(t, "300", res.TargetLot.AmountOwed)
	requireDecimal(t, "5", res.TargetLot.TotalWeight, "waiver moves no stock into the supplier lot")
	require.Len(t, res.Movements, 2)
	assert.Equal(t, res.WaiverID, *res.Movements[0].CorrelationID)
	assert.Equal(t, res.WaiverID, *res.Movements[1].CorrelationID)
}

func TestWaiver_ValueAboveOwed_Rejected(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	merchant := f.receiveGold(t, 18, model.MerchantSupplierID, "10", "100", "0", false)
	owed := f.receiveGold(t, 18, s.ID, "1", "120", "0", false)

	_, err := f.ledger.ApplyWaiver(f.ctx, WaiverRequest{
		SourceLotID: merchant.Lot.ID, TargetLotID: owed.Lot.ID, Weight: dec("2"), Actor: "manager1",
	})
	assert.True(t, errors.Is(err, ErrPaymentExceedsOwed))
	requireDecimal(t, "10", f.lot(t, merchant.Lot.ID).TotalWeight)
}

func TestWaiver_SourceMustBeMerchantOwned(t *testing.T) {
	a := newSupplier("aurum", "0", false)
	b := newSupplier("bullion", "0", false)
	f := newFixture(t, a, b)
	fromA := f.receiveGold(t, 18, a.ID, "5", "100", "0", false)
	fromB := f.receiveGold(t, 18, b.ID, "5", "100", "0", false)

	_, err := f.ledger.ApplyWaiver(f.ctx, WaiverRequest{
		SourceLotID: fromA.Lot.ID, TargetLotID: fromB.Lot.ID, Weight: dec("1"), Actor: "manager1",
	})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

// ── Adjustments and replay ───────────────────────────────────────────────────

func TestAdjustment_CannotGoNegative(t *testing.T) {
	f := newFixture(t)
	rcv := f.receiveGold(t, 22, model.MerchantSupplierID, "2", "90", "0", false)

	_, err := f.ledger.ApplyAdjustment(f.ctx, AdjustmentRequest{LotID: rcv.Lot.ID, WeightChange: dec("-2.5"), Reason: "scale recount", Actor: "manager1"})
	assert.Equal(t, KindInvalidMovement, KindOf(err))

	res, err := f.ledger.ApplyAdjustment(f.ctx, AdjustmentRequest{LotID: rcv.Lot.ID, WeightChange: dec("-0.25"), Reason: "scale recount", Actor: "manager1"})
	require.NoError(t, err)
	requireDecimal(t, "1.75", res.Lot.TotalWeight)
	assert.Equal(t, "scale recount", res.Movement.ReferenceNumber)
}

func TestAdjustment_RequiresReason(t *testing.T) {
	f := newFixture(t)
	rcv := f.receiveGold(t, 22, model.MerchantSupplierID, "2", "90", "0", false)

	_, err := f.ledger.ApplyAdjustment(f.ctx, AdjustmentRequest{LotID: rcv.Lot.ID, WeightChange: dec("1"), Actor: "manager1"})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestReplayLot_MatchesStoredBalances(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	rcv := f.receiveGold(t, 18, s.ID, "6", "100", "100", false)
	f.receiveGold(t, 18, s.ID, "4", "150", "0", false)
	_, err := f.ledger.ApplySale(f.ctx, SaleRequest{Item: model.RawGoldRef(18), BranchID: f.branch, Weight: dec("3"), Actor: "clerk1"})
	require.NoError(t, err)
	_, err = f.ledger.ApplyPayment(f.ctx, PaymentRequest{LotID: rcv.Lot.ID, Amount: dec("500"), Actor: "manager1"})
	require.NoError(t, err)

	report, err := f.ledger.ReplayLot(f.ctx, rcv.Lot.ID)
	require.NoError(t, err)

	assert.True(t, report.Consistent, "drift: %v", report.Drift)
	assert.Equal(t, 5, report.Movements)
	requireDecimal(t, "7", report.Expected.Weight)
	requireDecimal(t, "1200", report.Expected.TotalCost)
	requireDecimal(t, "600", report.Expected.AmountPaid)
	requireDecimal(t, "600", report.Expected.AmountOwed)
}

func TestMovementHistory_SequencesAreContiguous(t *testing.T) {
	f := newFixture(t)
	rcv := f.receiveGold(t, 24, model.MerchantSupplierID, "1", "70", "0", false)
	f.receiveGold(t, 24, model.MerchantSupplierID, "1", "72", "0", false)

	history, err := f.ledger.MovementHistory(f.ctx, rcv.Lot.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, m := range history {
		assert.Equal(t, int64(i+1), m.Sequence)
	}
	requireDecimal(t, "2", history[3].WeightBalanceAfter)
}

// ── Precision ────────────────────────────────────────────────────────────────

func TestWeightsBeyondThreeDecimals_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.ApplyReceipt(f.ctx, ReceiptRequest{
		Item: model.RawGoldRef(18), BranchID: f.branch, SupplierID: model.MerchantSupplierID,
		Weight: dec("1.0005"), UnitCost: dec("60"), Actor: "clerk1",
	})
	assert.Equal(t, KindInvalidInput, KindOf(err))
	lots, err := f.store.ListLots(f.ctx, lotFilterAll())
	require.NoError(t, err)
	assert.Empty(t, lots)

	rcv := f.receiveGold(t, 18, model.MerchantSupplierID, "2", "60", "0", false)

	_, err = f.ledger.ApplySale(f.ctx, SaleRequest{Item: model.RawGoldRef(18), BranchID: f.branch, Weight: dec("0.0005"), Actor: "clerk1"})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = f.ledger.ApplyAdjustment(f.ctx, AdjustmentRequest{LotID: rcv.Lot.ID, WeightChange: dec("0.0001"), Reason: "scale recount", Actor: "manager1"})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	requireDecimal(t, "2", f.lot(t, rcv.Lot.ID).TotalWeight)
}

func TestMoney_StoredAtColumnScale(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)

	rcv := f.receiveGold(t, 18, s.ID, "3", "33.333333333333333", "0", false)
	f.receiveGold(t, 18, s.ID, "1.5", "10.123456789", "0", false)
	_, err := f.ledger.ApplyPayment(f.ctx, PaymentRequest{LotID: rcv.Lot.ID, Amount: dec("0.123456789"), Actor: "manager1"})
	require.NoError(t, err)

	lot := f.lot(t, rcv.Lot.ID)
	requireDecimal(t, "115.18518518", lot.TotalCost)
	requireDecimal(t, "0.12345679", lot.AmountPaid)
	requireDecimal(t, "115.06172839", lot.AmountOwed)
	requireDecimal(t, lot.UnitCost.Round(StoredMoneyPlaces).String(), lot.UnitCost)
	assert.True(t, lot.TotalCost.Sub(lot.AmountPaid).Equal(lot.AmountOwed))

	history, err := f.ledger.MovementHistory(f.ctx, lot.ID)
	require.NoError(t, err)
	for _, mv := range history {
		requireDecimal(t, mv.CostChange.Round(StoredMoneyPlaces).String(), mv.CostChange)
		requireDecimal(t, mv.PaidChange.Round(StoredMoneyPlaces).String(), mv.PaidChange)
		requireDecimal(t, mv.UnitCostAfter.Round(StoredMoneyPlaces).String(), mv.UnitCostAfter)
	}

	report, err := f.ledger.ReplayLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "drift: %v", report.Drift)
}

func TestWaiver_ValueStoredAtColumnScale(t *testing.T) {
	s := newSupplier("aurum", "0", false)
	f := newFixture(t, s)
	merchant := f.receiveGold(t, 18, model.MerchantSupplierID, "3", "10", "0", false)
	f.receiveGold(t, 18, model.MerchantSupplierID, "3", "11.111111111", "0", false)
	owed := f.receiveGold(t, 18, s.ID, "5", "100", "0", false)

	res, err := f.ledger.ApplyWaiver(f.ctx, WaiverRequest{
		SourceLotID: merchant.Lot.ID, TargetLotID: owed.Lot.ID, Weight: dec("1"), Actor: "manager1",
	})
	require.NoError(t, err)

	// Blended merchant cost (30 + 33.333333333) / 6 is stored as 10.55555556.
	target := f.lot(t, owed.Lot.ID)
	requireDecimal(t, "10.55555556", target.AmountPaid)
	assert.True(t, target.TotalCost.Sub(target.AmountPaid).Equal(target.AmountOwed))
	requireDecimal(t, "10.56", res.SettledValue)
}
