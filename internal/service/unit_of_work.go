package service

import (
	"context"
	"errors"
	"fmt"

	"goldledger/internal/infra"
	"goldledger/internal/repository"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("goldledger/service")

// UnitOfWork is the lock + transaction scope every balance-changing command
// runs in: the identity locks for keys are held for the whole transaction,
// and fn's writes commit together or not at all.
type UnitOfWork interface {
	Run(ctx context.Context, op string, keys []string, fn func(ctx context.Context, tx repository.LedgerTx) error) error
}

type unitOfWork struct {
	repo   repository.LedgerRepository
	locker infra.Locker
}

func NewUnitOfWork(repo repository.LedgerRepository, locker infra.Locker) UnitOfWork {
	return &unitOfWork{repo: repo, locker: locker}
}

func (u *unitOfWork) Run(ctx context.Context, op string, keys []string, fn func(ctx context.Context, tx repository.LedgerTx) error) (err error) {
	ctx, span := tracer.Start(ctx, "ledger."+op)
	span.SetAttributes(attribute.StringSlice("ledger.lock_keys", keys))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := u.locker.Acquire(ctx, keys...)
	if err != nil {
		if errors.Is(err, infra.ErrLockTimeout) {
			log.Warn().Err(err).Str("op", op).Strs("keys", keys).Msg("ledger: lock not acquired")
			return &LedgerError{Kind: KindConflict, Message: "identity is locked by another command", Err: err}
		}
		return fmt.Errorf("%s: acquire locks: %w", op, err)
	}
	defer release()

	err = u.repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
		return fn(ctx, tx)
	})
	return translateRepoError(op, err)
}

// translateRepoError turns storage sentinels into ledger errors; domain
// errors raised inside the transaction pass through unchanged.
func translateRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrDuplicate):
		log.Warn().Err(err).Str("op", op).Msg("ledger: write conflict")
		return &LedgerError{Kind: KindConflict, Message: "lot was modified concurrently", Err: err}
	case errors.Is(err, repository.ErrNotFound):
		return &LedgerError{Kind: KindNotFound, Message: "lot not found", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
