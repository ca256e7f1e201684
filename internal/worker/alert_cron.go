package worker

// Periodic scan of the balance snapshot. Findings are queued as one digest
// job per tick; the mail itself is sent by AlertDigestWorker.

import (
	"context"
	"time"

	"goldledger/internal/infra"
	"goldledger/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DigestQueue accepts digests for delivery.
type DigestQueue interface {
	EnqueueAlertDigest(ctx context.Context, digest AlertDigest) error
}

// AlertCronConfig holds all dependencies for the scan goroutine.
type AlertCronConfig struct {
	Validator service.BalanceValidator
	Queue     DigestQueue
	// MailCB is consulted so scans pause while the relay is down.
	MailCB    *infra.CircuitBreaker
	Interval  time.Duration
	Threshold decimal.Decimal
}

// StartAlertCron launches the scan loop. It respects ctx for graceful shutdown.
func StartAlertCron(ctx context.Context, cfg AlertCronConfig) {
	if cfg.Interval <= 0 {
		log.Info().Msg("alert_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("alert_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("alert_cron: shutting down")
				return
			case <-ticker.C:
				if err := scanAlerts(ctx, cfg, time.Now()); err != nil {
					log.Error().Err(err).Msg("alert_cron: scan failed")
				}
			}
		}
	}()
}

func scanAlerts(ctx context.Context, cfg AlertCronConfig, now time.Time) error {
	if cfg.MailCB != nil && cfg.MailCB.State() == infra.CBOpen {
		log.Debug().Msg("alert_cron: mail circuit open, skipping tick")
		return nil
	}

	digest, err := buildDigest(ctx, cfg.Validator, cfg.Threshold, now)
	if err != nil {
		return err
	}
	if digest.Empty() {
		return nil
	}
	log.Info().
		Int("low_ownership", len(digest.LowOwnership)).
		Int("outstanding", len(digest.Outstanding)).
		Msg("alert_cron: queueing digest")
	return cfg.Queue.EnqueueAlertDigest(ctx, digest)
}

func buildDigest(ctx context.Context, v service.BalanceValidator, threshold decimal.Decimal, now time.Time) (AlertDigest, error) {
	digest := AlertDigest{GeneratedAt: now, Threshold: threshold}

	low, err := v.LowOwnershipAlerts(ctx, nil, threshold)
	if err != nil {
		return digest, err
	}
	for _, a := range low {
		digest.LowOwnership = append(digest.LowOwnership, LowOwnershipLine{
			ItemKey:  a.Item.Key,
			ItemName: a.Item.Name,
			Unit:     a.Item.Unit,
			BranchID: a.BranchID.String(),
			Weight:   a.Weight,
			Quantity: a.Quantity,
		})
	}

	owed, err := v.OutstandingPaymentAlerts(ctx, nil)
	if err != nil {
		return digest, err
	}
	for _, a := range owed {
		digest.Outstanding = append(digest.Outstanding, OutstandingLine{
			SupplierID:  a.SupplierID.String(),
			AmountOwed:  service.RoundMoney(a.AmountOwed),
			Lots:        a.Lots,
			OldestLotAt: a.OldestLotAt,
		})
	}
	return digest, nil
}
