package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"goldledger/internal/infra"
	"goldledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_LockTimeoutIsConflict(t *testing.T) {
	store := repository.NewMemoryLedgerStore()
	locker := infra.NewMemoryLocker(50 * time.Millisecond)
	uow := NewUnitOfWork(store, locker)

	release, err := locker.Acquire(context.Background(), "lot:a")
	require.NoError(t, err)
	defer release()

	ran := false
	err = uow.Run(context.Background(), "sale", []string{"lot:a"}, func(context.Context, repository.LedgerTx) error {
		ran = true
		return nil
	})
	assert.False(t, ran)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, infra.ErrLockTimeout))
}

func TestUnitOfWork_TranslatesStoreErrors(t *testing.T) {
	uow := NewUnitOfWork(repository.NewMemoryLedgerStore(), infra.NewMemoryLocker(time.Second))

	cases := []struct {
		raised error
		kind   ErrorKind
	}{
		{repository.ErrVersionConflict, KindConflict},
		{repository.ErrDuplicate, KindConflict},
		{repository.ErrNotFound, KindNotFound},
		{ErrPaymentExceedsOwed, KindPaymentExceedsOwed},
		{fmt.Errorf("disk full"), ""},
	}
	for _, tc := range cases {
		err := uow.Run(context.Background(), "payment", []string{"lot:b"}, func(context.Context, repository.LedgerTx) error {
			return tc.raised
		})
		require.Error(t, err)
		assert.Equal(t, tc.kind, KindOf(err), "raised %v", tc.raised)
	}
}

func TestUnitOfWork_ReleasesLocksAfterFailure(t *testing.T) {
	locker := infra.NewMemoryLocker(50 * time.Millisecond)
	uow := NewUnitOfWork(repository.NewMemoryLedgerStore(), locker)

	_ = uow.Run(context.Background(), "sale", []string{"lot:c"}, func(context.Context, repository.LedgerTx) error {
		return errors.New("boom")
	})

	release, err := locker.Acquire(context.Background(), "lot:c")
	require.NoError(t, err)
	release()
}

func TestLedgerError_KindMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newLedgerError(KindInsufficientOwnership, nil, "only %s owned", "2"))

	assert.True(t, errors.Is(err, ErrInsufficientOwnership))
	assert.False(t, errors.Is(err, ErrPaymentExceedsOwed))
	assert.Equal(t, KindInsufficientOwnership, KindOf(err))
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "only 2 owned")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}
