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

type ConversionRequest struct {
	BranchID        uuid.UUID
	SupplierID      uuid.UUID
	FromKaratTypeID int
	ToKaratTypeID   int
	FromWeight      decimal.Decimal
	Reference       string
	Actor           string
}

type ConversionResult struct {
	Conversion     model.KaratConversion
	SourceLot      model.OwnershipLot
	DestinationLot model.OwnershipLot
	Debit          model.OwnershipMovement
	Credit         model.OwnershipMovement
}

// KaratConversionService re-expresses raw gold of one karat as raw gold of
// another at equal fine-gold content. Both legs commit together.
type KaratConversionService interface {
	Convert(ctx context.Context, req ConversionRequest) (*ConversionResult, error)
	// Preview computes the destination weight without touching the ledger.
	Preview(fromKarat, toKarat int, fromWeight decimal.Decimal) (toWeight, rate decimal.Decimal, err error)
	GetConversion(ctx context.Context, id uuid.UUID) (*model.KaratConversion, error)
}

type karatConversionService struct {
	uow      UnitOfWork
	repo     repository.LedgerRepository
	recorder *MovementRecorder
	purities PurityTable
	hooks    *commitHooks
	now      func() time.Time
}

func NewKaratConversionService(uow UnitOfWork, repo repository.LedgerRepository, recorder *MovementRecorder, purities PurityTable, opts LedgerOptions) KaratConversionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &karatConversionService{
		uow:      uow,
		repo:     repo,
		recorder: recorder,
		purities: purities,
		hooks:    &commitHooks{events: opts.Events, cache: opts.Cache},
		now:      opts.Now,
	}
}

func (s *karatConversionService) Preview(fromKarat, toKarat int, fromWeight decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !fromWeight.IsPositive() {
		return decimal.Zero, decimal.Zero, newLedgerError(KindInvalidConversionWeight, nil,
			"conversion weight must be positive, got %s", fromWeight)
	}
	if !fitsWeightScale(fromWeight) {
		return decimal.Zero, decimal.Zero, invalidInput("conversion weight %s has more than %d decimals", fromWeight, WeightPlaces)
	}
	if fromKarat == toKarat {
		return decimal.Zero, decimal.Zero, invalidInput("source and destination karat are the same")
	}
	fromPurity, err := s.purities.Purity(fromKarat)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	toPurity, err := s.purities.Purity(toKarat)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	rate := fromPurity.Div(toPurity)
	return RoundWeight(fromWeight.Mul(fromPurity).Div(toPurity)), rate, nil
}

func (s *karatConversionService) Convert(ctx context.Context, req ConversionRequest) (*ConversionResult, error) {
	toWeight, rate, err := s.Preview(req.FromKaratTypeID, req.ToKaratTypeID, req.FromWeight)
	if err != nil {
		return nil, err
	}
	if req.BranchID == uuid.Nil {
		return nil, invalidInput("branch_id is required")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	if !toWeight.IsPositive() {
		return nil, newLedgerError(KindInvalidConversionWeight, nil, "conversion of %s yields no weight", req.FromWeight)
	}
	fromPurity, _ := s.purities.Purity(req.FromKaratTypeID)
	toPurity, _ := s.purities.Purity(req.ToKaratTypeID)

	source := model.LotIdentity{Item: model.RawGoldRef(req.FromKaratTypeID), BranchID: req.BranchID, SupplierID: req.SupplierID}
	dest := model.LotIdentity{Item: model.RawGoldRef(req.ToKaratTypeID), BranchID: req.BranchID, SupplierID: req.SupplierID}
	conversionID := uuid.New()

	result := &ConversionResult{}
	err = s.uow.Run(ctx, "karat_conversion", []string{source.Key(), dest.Key()}, func(ctx context.Context, tx repository.LedgerTx) error {
		src, err := conversionSource(tx, source, req.FromWeight)
		if err != nil {
			return err
		}
		costValue := roundStored(req.FromWeight.Mul(src.UnitCost))

		debit, err := s.recorder.Record(tx, src, MovementInput{
			Type:          model.MovementKaratConversionDebit,
			WeightChange:  req.FromWeight.Neg(),
			Reference:     req.Reference,
			CorrelationID: &conversionID,
			Actor:         req.Actor,
		})
		if err != nil {
			return err
		}

		dst, err := openLotTx(tx, dest, src.Currency, false, s.now())
		if err != nil {
			return err
		}
		if dst.Currency != src.Currency {
			return invalidInput("destination lot %s is kept in %s, source in %s", dst.ID, dst.Currency, src.Currency)
		}
		// The credit carries the debited cost value: new unit cost is
		// (dstWeight×dstCost + costValue) / (dstWeight + toWeight).
		unitCost := dst.TotalWeight.Mul(dst.UnitCost).Add(costValue).Div(dst.TotalWeight.Add(toWeight))
		credit, err := s.recorder.Record(tx, dst, MovementInput{
			Type:          model.MovementKaratConversionCredit,
			WeightChange:  toWeight,
			UnitCostAfter: &unitCost,
			Reference:     req.Reference,
			CorrelationID: &conversionID,
			Actor:         req.Actor,
		})
		if err != nil {
			return err
		}

		conv := &model.KaratConversion{
			ID:               conversionID,
			BranchID:         req.BranchID,
			SupplierID:       req.SupplierID,
			FromKaratTypeID:  req.FromKaratTypeID,
			ToKaratTypeID:    req.ToKaratTypeID,
			FromPurity:       fromPurity,
			ToPurity:         toPurity,
			Rate:             rate,
			FromWeight:       req.FromWeight,
			FineWeight:       req.FromWeight.Mul(fromPurity).Round(FineWeightPlaces),
			ToWeight:         toWeight,
			CostValue:        costValue,
			SourceLotID:      src.ID,
			DestinationLotID: dst.ID,
			DebitMovementID:  debit.ID,
			CreditMovementID: credit.ID,
			ReferenceNumber:  req.Reference,
			CreatedBy:        req.Actor,
			CreatedAt:        s.now(),
		}
		if err := tx.CreateConversion(conv); err != nil {
			return err
		}

		result.Conversion = *conv
		result.SourceLot = *src
		result.DestinationLot = *dst
		result.Debit = *debit
		result.Credit = *credit
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hooks.committed(ctx, LedgerEvent{
		Command: "karat_conversion", Reference: req.Reference, Actor: req.Actor, BranchID: req.BranchID,
		ItemKeys: []string{source.Item.Key(), dest.Item.Key()}, OccurredAt: s.now(),
	}, []model.OwnershipMovement{result.Debit, result.Credit})
	return result, nil
}

// conversionSource picks the oldest lot of the identity, open or sealed,
// that holds at least weight on its own. One conversion debits one lot;
// stock spread over several lots has to be consolidated first.
func conversionSource(tx repository.LedgerTx, identity model.LotIdentity, weight decimal.Decimal) (*model.OwnershipLot, error) {
	branch, supplier := identity.BranchID, identity.SupplierID
	lots, err := tx.ListLotsForUpdate(repository.LotFilter{
		ItemKey:       identity.Item.Key(),
		BranchID:      &branch,
		SupplierID:    &supplier,
		OnlyWithStock: true,
	})
	if err != nil {
		return nil, err
	}
	lots = FIFO().Order(lots)

	held := decimal.Zero
	for i := range lots {
		if lots[i].TotalWeight.GreaterThanOrEqual(weight) {
			return &lots[i], nil
		}
		held = held.Add(lots[i].TotalWeight)
	}
	balance := &BalanceSnapshot{Weight: held, Available: held, Requested: weight}
	if held.GreaterThanOrEqual(weight) {
		return nil, newLedgerError(KindInsufficientOwnership, balance,
			"no single %s lot holds %sg (%sg across %d lots); consolidate them first",
			identity.Item.Key(), weight, held, len(lots))
	}
	return nil, newLedgerError(KindInsufficientOwnership, balance,
		"%s lots hold %sg, conversion needs %sg", identity.Item.Key(), held, weight)
}

func (s *karatConversionService) GetConversion(ctx context.Context, id uuid.UUID) (*model.KaratConversion, error) {
	c, err := s.repo.FindConversion(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("conversion %s not found", id)
	}
	return c, err
}
