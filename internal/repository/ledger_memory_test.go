package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() model.LotIdentity {
	return model.LotIdentity{Item: model.RawGoldRef(18), BranchID: uuid.New(), SupplierID: uuid.New()}
}

func createLot(t *testing.T, s *MemoryLedgerStore, identity model.LotIdentity, weight, owed string) *model.OwnershipLot {
	t.Helper()
	lot := model.NewLot(identity, "USD", time.Now())
	lot.TotalWeight = decimal.RequireFromString(weight)
	lot.TotalCost = decimal.RequireFromString(owed)
	lot.AmountOwed = lot.TotalCost
	require.NoError(t, s.WithinTx(context.Background(), func(tx LedgerTx) error {
		return tx.CreateLot(lot)
	}))
	return lot
}

// ── Tests: unit of work ──────────────────────────────────────────────────────

func TestMemoryStore_RollbackOnError(t *testing.T) {
	s := NewMemoryLedgerStore()
	boom := errors.New("boom")
	lot := model.NewLot(testIdentity(), "USD", time.Now())

	err := s.WithinTx(context.Background(), func(tx LedgerTx) error {
		if err := tx.CreateLot(lot); err != nil {
			return err
		}
		seq, _ := tx.NextMovementSequence(lot.ID)
		_ = tx.CreateMovement(&model.OwnershipMovement{ID: uuid.New(), LotID: lot.ID, Sequence: seq})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindLot(context.Background(), lot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	history, _ := s.ListMovements(context.Background(), lot.ID)
	assert.Empty(t, history)
}

func TestMemoryStore_StaleVersionConflicts(t *testing.T) {
	s := NewMemoryLedgerStore()
	lot := createLot(t, s, testIdentity(), "5", "500")

	// Two units of work read the same version; the second commit loses.
	read, first := make(chan struct{}), make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(context.Background(), func(tx LedgerTx) error {
			l, err := tx.FindLotForUpdate(lot.ID)
			close(read)
			if err != nil {
				return err
			}
			<-first
			l.TotalWeight = decimal.NewFromInt(1)
			return tx.UpdateLot(l)
		})
	}()
	<-read

	require.NoError(t, s.WithinTx(context.Background(), func(tx LedgerTx) error {
		l, err := tx.FindLotForUpdate(lot.ID)
		if err != nil {
			return err
		}
		l.TotalWeight = decimal.NewFromInt(4)
		return tx.UpdateLot(l)
	}))
	close(first)
	assert.ErrorIs(t, <-done, ErrVersionConflict)

	stored, err := s.FindLot(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalWeight.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, int64(1), stored.Version)
}

func TestMemoryStore_UpdateWithStaleCopy(t *testing.T) {
	s := NewMemoryLedgerStore()
	lot := createLot(t, s, testIdentity(), "5", "500")

	err := s.WithinTx(context.Background(), func(tx LedgerTx) error {
		l, err := tx.FindLotForUpdate(lot.ID)
		if err != nil {
			return err
		}
		stale := *l
		if err := tx.UpdateLot(l); err != nil {
			return err
		}
		return tx.UpdateLot(&stale)
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemoryStore_OneOpenLotPerIdentity(t *testing.T) {
	s := NewMemoryLedgerStore()
	identity := testIdentity()
	createLot(t, s, identity, "1", "10")

	err := s.WithinTx(context.Background(), func(tx LedgerTx) error {
		return tx.CreateLot(model.NewLot(identity, "USD", time.Now()))
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Sealing the open lot first makes room for a new one.
	err = s.WithinTx(context.Background(), func(tx LedgerTx) error {
		open, err := tx.FindOpenLot(identity)
		if err != nil {
			return err
		}
		open.Status = model.LotSealed
		if err := tx.UpdateLot(open); err != nil {
			return err
		}
		return tx.CreateLot(model.NewLot(identity, "USD", time.Now()))
	})
	require.NoError(t, err)

	lots, err := s.ListLots(context.Background(), LotFilter{ItemKey: identity.Item.Key()})
	require.NoError(t, err)
	assert.Len(t, lots, 2)
}

func TestMemoryStore_MovementSequencesContinue(t *testing.T) {
	s := NewMemoryLedgerStore()
	lot := createLot(t, s, testIdentity(), "1", "10")

	for i := 0; i < 2; i++ {
		require.NoError(t, s.WithinTx(context.Background(), func(tx LedgerTx) error {
			a, _ := tx.NextMovementSequence(lot.ID)
			b, _ := tx.NextMovementSequence(lot.ID)
			for _, seq := range []int64{a, b} {
				if err := tx.CreateMovement(&model.OwnershipMovement{ID: uuid.New(), LotID: lot.ID, Sequence: seq}); err != nil {
					return err
				}
			}
			return nil
		}))
	}
	history, err := s.ListMovements(context.Background(), lot.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, m := range history {
		assert.Equal(t, int64(i+1), m.Sequence)
	}
}

// ── Tests: reads ─────────────────────────────────────────────────────────────

func TestMemoryStore_FiltersAndOwedTotals(t *testing.T) {
	s := NewMemoryLedgerStore()
	identity := testIdentity()
	createLot(t, s, identity, "2", "200")

	other := identity
	other.BranchID = uuid.New()
	createLot(t, s, other, "0", "50")

	lots, err := s.ListLots(context.Background(), LotFilter{BranchID: &identity.BranchID})
	require.NoError(t, err)
	assert.Len(t, lots, 1)

	lots, err = s.ListLots(context.Background(), LotFilter{SupplierID: &identity.SupplierID, OnlyWithStock: true})
	require.NoError(t, err)
	assert.Len(t, lots, 1)

	lots, err = s.ListLots(context.Background(), LotFilter{OnlyOwed: true})
	require.NoError(t, err)
	assert.Len(t, lots, 2)

	owed, err := s.SumOwedBySupplier(context.Background(), identity.SupplierID)
	require.NoError(t, err)
	assert.True(t, owed.Equal(decimal.NewFromInt(250)), owed.String())

	ids, err := s.ListLotIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestMemoryStore_ConsolidationSources(t *testing.T) {
	s := NewMemoryLedgerStore()
	batch := &model.ConsolidationBatch{ID: uuid.New()}
	a, b := uuid.New(), uuid.New()

	require.NoError(t, s.WithinTx(context.Background(), func(tx LedgerTx) error {
		return tx.CreateConsolidation(batch, []model.ConsolidationSource{
			{BatchID: batch.ID, LotID: a}, {BatchID: batch.ID, LotID: b},
		})
	}))

	got, err := s.FindConsolidation(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, got.SourceLotIDs)

	_, err = s.FindConsolidation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindConversion(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
