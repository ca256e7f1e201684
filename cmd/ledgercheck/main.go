// ledgercheck replays every lot's movement history against its stored
// balances and reports drift. Exit status 1 means at least one lot drifted.
//
//	ledgercheck [-lot <uuid>] [-requeue-dlq N]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"goldledger/internal/app"
	"goldledger/internal/config"
	"goldledger/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	lotFlag := flag.String("lot", "", "replay a single lot")
	requeue := flag.Int("requeue-dlq", 0, "move up to N dead jobs per queue back onto their queue")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.ConfigureLogging(cfg)

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var ids []uuid.UUID
	if *lotFlag != "" {
		id, err := uuid.Parse(*lotFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -lot")
		}
		ids = []uuid.UUID{id}
	} else if ids, err = a.LedgerRepo.ListLotIDs(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to list lots")
	}

	drifted := 0
	for _, id := range ids {
		report, err := a.Ledger.ReplayLot(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("lot_id", id.String()).Msg("replay failed")
			drifted++
			continue
		}
		if !report.Consistent {
			drifted++
			log.Error().
				Str("lot_id", id.String()).
				Int("movements", report.Movements).
				Strs("drift", report.Drift).
				Msg("lot balance drift")
		}
	}

	if a.RDB != nil {
		for _, q := range worker.Queues() {
			if *requeue > 0 {
				n, err := worker.RequeueDLQ(ctx, a.RDB, q, *requeue)
				if err != nil {
					log.Error().Err(err).Str("queue", q).Msg("requeue failed")
				}
				log.Info().Str("queue", q).Int("moved", n).Msg("dead jobs re-queued")
			}
			if n, err := worker.DLQLength(ctx, a.RDB, q); err == nil && n > 0 {
				log.Warn().Str("queue", q).Int64("dead_jobs", n).Msg("dead letter queue not empty")
			}
		}
	}

	fmt.Printf("checked %d lots, %d with drift\n", len(ids), drifted)
	if drifted > 0 {
		os.Exit(1)
	}
}
