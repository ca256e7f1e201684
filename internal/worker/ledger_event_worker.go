package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"goldledger/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	AuditStream       = "goldledger:audit:ledger"
	auditStreamMaxLen = 100_000
)

// LedgerEventWorker appends committed ledger commands to a capped redis
// stream that downstream audit consumers read with XREAD.
type LedgerEventWorker struct {
	rdb *redis.Client
}

func NewLedgerEventWorker(rdb *redis.Client) *LedgerEventWorker {
	return &LedgerEventWorker{rdb: rdb}
}

func (w *LedgerEventWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var ev service.LedgerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		// Unparseable payloads never succeed; drop instead of retrying.
		log.Error().Err(err).Msg("ledger_event_worker: invalid payload")
		return nil
	}
	values := auditFields(ev)
	if err := w.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: AuditStream,
		MaxLen: auditStreamMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("append audit stream: %w", err)
	}
	log.Debug().
		Str("command", ev.Command).
		Str("reference", ev.Reference).
		Int("movements", len(ev.MovementIDs)).
		Msg("ledger_event_worker: event recorded")
	return nil
}

func auditFields(ev service.LedgerEvent) map[string]interface{} {
	lots := make([]string, 0, len(ev.LotIDs))
	for _, id := range ev.LotIDs {
		lots = append(lots, id.String())
	}
	movements := make([]string, 0, len(ev.MovementIDs))
	for _, id := range ev.MovementIDs {
		movements = append(movements, id.String())
	}
	return map[string]interface{}{
		"command":      ev.Command,
		"reference":    ev.Reference,
		"actor":        ev.Actor,
		"branch_id":    ev.BranchID.String(),
		"item_keys":    strings.Join(ev.ItemKeys, ","),
		"lot_ids":      strings.Join(lots, ","),
		"movement_ids": strings.Join(movements, ","),
		"occurred_at":  ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
