package service

import (
	"context"
	"time"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LedgerEvent is published after a ledger command commits.
type LedgerEvent struct {
	Command     string      `json:"command"`
	Reference   string      `json:"reference"`
	Actor       string      `json:"actor"`
	BranchID    uuid.UUID   `json:"branch_id"`
	ItemKeys    []string    `json:"item_keys"`
	LotIDs      []uuid.UUID `json:"lot_ids"`
	MovementIDs []uuid.UUID `json:"movement_ids"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// EventPublisher hands committed events to downstream consumers. A publish
// failure never undoes the committed ledger change.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev LedgerEvent) error
}

// commitHooks runs the post-commit side effects shared by all commands.
type commitHooks struct {
	events EventPublisher
	cache  *SnapshotCache
}

func (h *commitHooks) committed(ctx context.Context, ev LedgerEvent, movements []model.OwnershipMovement) {
	for _, m := range movements {
		ev.MovementIDs = append(ev.MovementIDs, m.ID)
		if !containsID(ev.LotIDs, m.LotID) {
			ev.LotIDs = append(ev.LotIDs, m.LotID)
		}
		log.Info().
			Str("lot_id", m.LotID.String()).
			Str("movement_type", string(m.MovementType)).
			Str("reference", m.ReferenceNumber).
			Str("actor", m.CreatedBy).
			Str("weight_change", m.WeightChange.String()).
			Str("amount_change", m.AmountChange.String()).
			Msg("ledger: movement recorded")
	}
	if h == nil {
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}
	if h.events != nil {
		if err := h.events.PublishLedgerEvent(ctx, ev); err != nil {
			log.Error().Err(err).Str("command", ev.Command).Str("reference", ev.Reference).
				Msg("ledger: publish event failed")
		}
	}
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
