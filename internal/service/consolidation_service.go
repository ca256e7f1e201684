package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ConsolidationRequest struct {
	Item       model.ItemRef
	BranchID   uuid.UUID
	SupplierID uuid.UUID
	Reference  string
	Actor      string
}

type ConsolidationResult struct {
	Batch      model.ConsolidationBatch
	TargetLot  model.OwnershipLot
	SourceLots []model.OwnershipLot
	Movements  []model.OwnershipMovement
}

// ConsolidationService merges every active lot of one identity into a single
// new lot at the weighted-average unit cost.
type ConsolidationService interface {
	Consolidate(ctx context.Context, req ConsolidationRequest) (*ConsolidationResult, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*model.ConsolidationBatch, error)
}

type consolidationService struct {
	uow      UnitOfWork
	repo     repository.LedgerRepository
	recorder *MovementRecorder
	hooks    *commitHooks
	now      func() time.Time
}

func NewConsolidationService(uow UnitOfWork, repo repository.LedgerRepository, recorder *MovementRecorder, opts LedgerOptions) ConsolidationService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &consolidationService{
		uow:      uow,
		repo:     repo,
		recorder: recorder,
		hooks:    &commitHooks{events: opts.Events, cache: opts.Cache},
		now:      opts.Now,
	}
}

func (s *consolidationService) Consolidate(ctx context.Context, req ConsolidationRequest) (*ConsolidationResult, error) {
	if err := req.Item.Validate(); err != nil {
		return nil, invalidInput("%v", err)
	}
	if req.BranchID == uuid.Nil {
		return nil, invalidInput("branch_id is required")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	identity := model.LotIdentity{Item: req.Item, BranchID: req.BranchID, SupplierID: req.SupplierID}
	branch, supplier := req.BranchID, req.SupplierID
	filter := repository.LotFilter{ItemKey: req.Item.Key(), BranchID: &branch, SupplierID: &supplier}

	batchID := uuid.New()
	result := &ConsolidationResult{}
	err := s.uow.Run(ctx, "consolidation", []string{identity.Key()}, func(ctx context.Context, tx repository.LedgerTx) error {
		lots, err := tx.ListLotsForUpdate(filter)
		if err != nil {
			return err
		}
		// Empty lots are swept into the batch but do not count as inputs.
		held := 0
		for i := range lots {
			if !lots[i].ReachedZero() {
				held++
			}
		}
		if held < 2 {
			return newLedgerError(KindInvalidConsolidationInput, nil,
				"consolidation needs at least two active lots, found %d", held)
		}

		currency := lots[0].Currency
		weight, quantity := decimal.Zero, decimal.Zero
		cost, paid := decimal.Zero, decimal.Zero
		measure, value := decimal.Zero, decimal.Zero
		earliest := lots[0].CreatedAt
		for i := range lots {
			lot := &lots[i]
			if lot.Currency != currency {
				return newLedgerError(KindInvalidConsolidationInput, nil,
					"lots span currencies %s and %s", currency, lot.Currency)
			}
			weight = weight.Add(lot.TotalWeight)
			quantity = quantity.Add(lot.TotalQuantity)
			cost = cost.Add(lot.TotalCost)
			paid = paid.Add(lot.AmountPaid)
			m := lot.CostMeasure()
			measure = measure.Add(m)
			value = value.Add(m.Mul(lot.UnitCost))
			if lot.CreatedAt.Before(earliest) {
				earliest = lot.CreatedAt
			}
		}
		unitCost := decimal.Zero
		if measure.IsPositive() {
			unitCost = roundStored(value.Div(measure))
		}

		// Sources are emptied first; that clears the open lot out of the way
		// of the new open target.
		sources := make([]model.ConsolidationSource, 0, len(lots))
		for i := range lots {
			lot := &lots[i]
			sources = append(sources, model.ConsolidationSource{
				BatchID:  batchID,
				LotID:    lot.ID,
				Weight:   lot.TotalWeight,
				Quantity: lot.TotalQuantity,
				UnitCost: lot.UnitCost,
			})
			mv, err := s.recorder.Record(tx, lot, MovementInput{
				Type:           model.MovementConsolidation,
				WeightChange:   lot.TotalWeight.Neg(),
				QuantityChange: lot.TotalQuantity.Neg(),
				CostChange:     lot.TotalCost.Neg(),
				PaidChange:     lot.AmountPaid.Neg(),
				Reference:      req.Reference,
				CorrelationID:  &batchID,
				Actor:          req.Actor,
			})
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, *mv)
		}

		// The merged lot keeps the age of its oldest source so FIFO/LIFO
		// ordering across identities is unchanged.
		target := model.NewLot(identity, currency, earliest)
		if err := tx.CreateLot(target); err != nil {
			return err
		}
		mv, err := s.recorder.Record(tx, target, MovementInput{
			Type:           model.MovementConsolidation,
			WeightChange:   weight,
			QuantityChange: quantity,
			CostChange:     cost,
			PaidChange:     paid,
			UnitCostAfter:  &unitCost,
			Reference:      req.Reference,
			CorrelationID:  &batchID,
			Actor:          req.Actor,
		})
		if err != nil {
			return err
		}
		result.Movements = append(result.Movements, *mv)

		batch := &model.ConsolidationBatch{
			ID:              batchID,
			ItemKey:         req.Item.Key(),
			BranchID:        req.BranchID,
			SupplierID:      req.SupplierID,
			TargetLotID:     target.ID,
			UnitCost:        unitCost,
			TotalWeight:     weight,
			TotalQuantity:   quantity,
			ReferenceNumber: req.Reference,
			CreatedBy:       req.Actor,
			CreatedAt:       s.now(),
		}
		if err := tx.CreateConsolidation(batch, sources); err != nil {
			return err
		}
		for _, src := range sources {
			batch.SourceLotIDs = append(batch.SourceLotIDs, src.LotID)
		}

		result.Batch = *batch
		result.TargetLot = *target
		result.SourceLots = lots
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hooks.committed(ctx, LedgerEvent{
		Command: "consolidation", Reference: req.Reference, Actor: req.Actor,
		BranchID: req.BranchID, ItemKeys: []string{req.Item.Key()}, OccurredAt: s.now(),
	}, result.Movements)
	return result, nil
}

func (s *consolidationService) GetBatch(ctx context.Context, id uuid.UUID) (*model.ConsolidationBatch, error) {
	b, err := s.repo.FindConsolidation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("consolidation batch %s not found", id)
	}
	return b, err
}
