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

// OwnershipLedger owns every balance-changing command on lots. Each command
// runs in one UnitOfWork: identity locks are taken, lots are re-read inside
// the transaction, validated, and written through the MovementRecorder.
type OwnershipLedger interface {
	GetOrCreateLot(ctx context.Context, identity model.LotIdentity) (*model.OwnershipLot, error)
	ApplyReceipt(ctx context.Context, req ReceiptRequest) (*ReceiptResult, error)
	ApplySale(ctx context.Context, req SaleRequest) (*SaleResult, error)
	ApplyPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
	ApplyWaiver(ctx context.Context, req WaiverRequest) (*WaiverResult, error)
	ApplyAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentResult, error)

	GetLot(ctx context.Context, id uuid.UUID) (*model.OwnershipLot, error)
	ActiveLots(ctx context.Context, q LotQuery) ([]model.OwnershipLot, error)
	MovementHistory(ctx context.Context, lotID uuid.UUID) ([]model.OwnershipMovement, error)
	ReplayLot(ctx context.Context, lotID uuid.UUID) (*ReplayReport, error)
}

// LedgerWarning is a non-fatal remark attached to a successful command.
type LedgerWarning struct {
	Code    string     `json:"code"`
	LotID   *uuid.UUID `json:"lot_id,omitempty"`
	Message string     `json:"message"`
}

const (
	WarningUnpaidStock         = "unpaid_stock"
	WarningCreditLimitExceeded = "credit_limit_exceeded"
)

type ReceiptRequest struct {
	Item       model.ItemRef
	BranchID   uuid.UUID
	SupplierID uuid.UUID
	Weight     decimal.Decimal
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	// PaidAmount is settled in the same unit of work. Ignored for merchant
	// receipts, which are always fully paid.
	PaidAmount decimal.Decimal
	Currency   string
	// SeparateLot seals the current open lot and starts a new one.
	SeparateLot bool
	Reference   string
	Actor       string
}

type ReceiptResult struct {
	Lot       model.OwnershipLot
	Movements []model.OwnershipMovement
	Credit    *CreditCheck
	Warnings  []LedgerWarning
}

type SaleRequest struct {
	Item     model.ItemRef
	BranchID uuid.UUID
	// Weight (raw gold) or Quantity (products) to take out.
	Weight    decimal.Decimal
	Quantity  decimal.Decimal
	Selector  LotSelector
	Reference string
	Actor     string
}

type SaleSlice struct {
	LotID      uuid.UUID
	SupplierID uuid.UUID
	Weight     decimal.Decimal
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	Cost       decimal.Decimal
}

type SaleResult struct {
	Slices    []SaleSlice
	Movements []model.OwnershipMovement
	TotalCost decimal.Decimal
	Warnings  []LedgerWarning
}

type PaymentRequest struct {
	LotID     uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Actor     string
}

type PaymentResult struct {
	Lot      model.OwnershipLot
	Movement model.OwnershipMovement
}

// WaiverRequest moves merchant-owned stock to a supplier in settlement of
// what a supplier lot owes.
type WaiverRequest struct {
	SourceLotID uuid.UUID
	TargetLotID uuid.UUID
	Weight      decimal.Decimal
	Quantity    decimal.Decimal
	Reference   string
	Actor       string
}

type WaiverResult struct {
	WaiverID     uuid.UUID
	SourceLot    model.OwnershipLot
	TargetLot    model.OwnershipLot
	SettledValue decimal.Decimal
	Movements    []model.OwnershipMovement
}

type AdjustmentRequest struct {
	LotID          uuid.UUID
	WeightChange   decimal.Decimal
	QuantityChange decimal.Decimal
	Reason         string
	Actor          string
}

type AdjustmentResult struct {
	Lot      model.OwnershipLot
	Movement model.OwnershipMovement
}

type LotQuery struct {
	Item            *model.ItemRef
	BranchID        *uuid.UUID
	SupplierID      *uuid.UUID
	IncludeDepleted bool
}

// LedgerOptions configures NewOwnershipLedger.
type LedgerOptions struct {
	DefaultCurrency string
	Events          EventPublisher
	Cache           *SnapshotCache
	Now             func() time.Time
}

type ownershipLedger struct {
	uow      UnitOfWork
	repo     repository.LedgerRepository
	recorder *MovementRecorder
	credit   SupplierCreditGuard
	hooks    *commitHooks
	currency string
	now      func() time.Time
}

func NewOwnershipLedger(
	uow UnitOfWork,
	repo repository.LedgerRepository,
	recorder *MovementRecorder,
	credit SupplierCreditGuard,
	opts LedgerOptions,
) OwnershipLedger {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ownershipLedger{
		uow:      uow,
		repo:     repo,
		recorder: recorder,
		credit:   credit,
		hooks:    &commitHooks{events: opts.Events, cache: opts.Cache},
		currency: opts.DefaultCurrency,
		now:      opts.Now,
	}
}

// ── GetOrCreateLot ──────────────────────────────────────────────────────────

func (l *ownershipLedger) GetOrCreateLot(ctx context.Context, identity model.LotIdentity) (*model.OwnershipLot, error) {
	if err := identity.Item.Validate(); err != nil {
		return nil, invalidInput("%v", err)
	}
	if identity.BranchID == uuid.Nil {
		return nil, invalidInput("branch_id is required")
	}
	var lot *model.OwnershipLot
	err := l.uow.Run(ctx, "get_or_create_lot", []string{identity.Key()}, func(ctx context.Context, tx repository.LedgerTx) error {
		var err error
		lot, err = openLotTx(tx, identity, l.currency, false, l.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// openLotTx returns the open lot of identity, creating it if missing. With
// separate set, a non-empty open lot is sealed and a fresh one created.
func openLotTx(tx repository.LedgerTx, identity model.LotIdentity, currency string, separate bool, now time.Time) (*model.OwnershipLot, error) {
	lot, err := tx.FindOpenLot(identity)
	switch {
	case err == nil:
		empty := lot.TotalWeight.IsZero() && lot.TotalQuantity.IsZero() && lot.TotalCost.IsZero()
		if !separate || empty {
			return lot, nil
		}
		lot.Status = model.LotSealed
		lot.SealedAt = &now
		if err := tx.UpdateLot(lot); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	lot = model.NewLot(identity, currency, now)
	if err := tx.CreateLot(lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// ── Receipt ─────────────────────────────────────────────────────────────────

func (r *ReceiptRequest) validate() error {
	if err := r.Item.Validate(); err != nil {
		return invalidInput("%v", err)
	}
	if r.BranchID == uuid.Nil {
		return invalidInput("branch_id is required")
	}
	if err := validateMeasure(r.Item, r.Weight, r.Quantity); err != nil {
		return err
	}
	if r.UnitCost.IsNegative() {
		return invalidInput("unit_cost must not be negative")
	}
	if r.PaidAmount.IsNegative() {
		return invalidInput("paid_amount must not be negative")
	}
	if strings.TrimSpace(r.Actor) == "" {
		return invalidInput("actor is required")
	}
	return nil
}

func (l *ownershipLedger) ApplyReceipt(ctx context.Context, req ReceiptRequest) (*ReceiptResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	identity := model.LotIdentity{Item: req.Item, BranchID: req.BranchID, SupplierID: req.SupplierID}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = l.currency
	}

	inMeasure := measureOf(req.Item, req.Weight, req.Quantity)
	inboundCost := roundStored(inMeasure.Mul(req.UnitCost))
	paid := roundStored(req.PaidAmount)
	if identity.IsMerchantOwned() {
		paid = inboundCost
	}
	if paid.GreaterThan(inboundCost) {
		return nil, invalidInput("paid_amount %s exceeds the receipt cost %s", paid, RoundMoney(inboundCost))
	}
	additionalOwed := inboundCost.Sub(paid)

	keys := []string{identity.Key()}
	if scope, err := l.credit.ScopeKey(ctx, req.SupplierID); err != nil {
		return nil, err
	} else if scope != "" {
		keys = append(keys, scope)
	}

	result := &ReceiptResult{}
	err := l.uow.Run(ctx, "receipt", keys, func(ctx context.Context, tx repository.LedgerTx) error {
		check, err := l.credit.CheckCredit(ctx, req.SupplierID, additionalOwed)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return newLedgerError(KindCreditLimitExceeded, &BalanceSnapshot{
				AmountOwed: check.CurrentBalance,
				Available:  check.Headroom(),
				Requested:  additionalOwed,
			}, "receipt would raise supplier balance to %s over limit %s",
				RoundMoney(check.ProjectedBalance), RoundMoney(check.Limit))
		}
		result.Credit = check
		if check.WouldExceed {
			result.Warnings = append(result.Warnings, LedgerWarning{
				Code:    WarningCreditLimitExceeded,
				Message: "supplier balance " + RoundMoney(check.ProjectedBalance).String() + " exceeds limit " + RoundMoney(check.Limit).String(),
			})
		}

		lot, err := openLotTx(tx, identity, currency, req.SeparateLot, l.now())
		if err != nil {
			return err
		}
		if lot.Currency != currency {
			return invalidInput("lot %s is kept in %s, receipt is in %s", lot.ID, lot.Currency, currency)
		}

		unitCost := weightedAverage(lot.CostMeasure(), lot.UnitCost, inMeasure, req.UnitCost)
		mv, err := l.recorder.Record(tx, lot, MovementInput{
			Type:           model.MovementReceipt,
			WeightChange:   req.Weight,
			QuantityChange: req.Quantity,
			CostChange:     inboundCost,
			UnitCostAfter:  &unitCost,
			Reference:      req.Reference,
			Actor:          req.Actor,
		})
		if err != nil {
			return err
		}
		result.Movements = append(result.Movements, *mv)

		if paid.IsPositive() {
			pay, err := l.recorder.Record(tx, lot, MovementInput{
				Type:       model.MovementPayment,
				PaidChange: paid,
				Reference:  req.Reference,
				Actor:      req.Actor,
			})
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, *pay)
		}
		result.Lot = *lot
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.hooks.committed(ctx, LedgerEvent{
		Command: "receipt", Reference: req.Reference, Actor: req.Actor,
		BranchID: req.BranchID, ItemKeys: []string{req.Item.Key()}, OccurredAt: l.now(),
	}, result.Movements)
	return result, nil
}

// ── Sale ────────────────────────────────────────────────────────────────────

func (l *ownershipLedger) ApplySale(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	if err := req.Item.Validate(); err != nil {
		return nil, invalidInput("%v", err)
	}
	if req.BranchID == uuid.Nil {
		return nil, invalidInput("branch_id is required")
	}
	if err := validateMeasure(req.Item, req.Weight, req.Quantity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	selector := req.Selector
	if selector == nil {
		selector = FIFO()
	}
	requested := measureOf(req.Item, req.Weight, req.Quantity)
	branch := req.BranchID
	filter := repository.LotFilter{ItemKey: req.Item.Key(), BranchID: &branch, OnlyWithStock: true}

	// Lock every identity that currently holds stock; lots that appear after
	// this snapshot are not drawn from.
	candidates, err := l.repo.ListLots(ctx, filter)
	if err != nil {
		return nil, err
	}
	candidates = selector.Order(candidates)
	if len(candidates) == 0 {
		return nil, newLedgerError(KindInsufficientOwnership, &BalanceSnapshot{Requested: requested},
			"no owned stock of %s in branch %s", req.Item.Key(), req.BranchID)
	}
	keys, locked := identityKeys(candidates)

	result := &SaleResult{TotalCost: decimal.Zero}
	err = l.uow.Run(ctx, "sale", keys, func(ctx context.Context, tx repository.LedgerTx) error {
		lots, err := tx.ListLotsForUpdate(filter)
		if err != nil {
			return err
		}
		eligible := make([]model.OwnershipLot, 0, len(lots))
		for _, lot := range lots {
			if _, ok := locked[lot.Identity().Key()]; ok {
				eligible = append(eligible, lot)
			}
		}
		ordered := selector.Order(eligible)

		plan, available := planConsumption(ordered, requested)
		if available.LessThan(requested) {
			return newLedgerError(KindInsufficientOwnership, &BalanceSnapshot{Available: available, Requested: requested},
				"requested %s of %s, only %s owned", requested, req.Item.Key(), available)
		}

		byID := make(map[uuid.UUID]*model.OwnershipLot, len(ordered))
		for i := range ordered {
			byID[ordered[i].ID] = &ordered[i]
		}
		total := decimal.Zero
		for _, s := range plan {
			lot := byID[s.LotID]
			weightOut, qtyOut := outboundMeasures(lot, s.Measure)
			mv, err := l.recorder.Record(tx, lot, MovementInput{
				Type:           model.MovementSale,
				WeightChange:   weightOut.Neg(),
				QuantityChange: qtyOut.Neg(),
				Reference:      req.Reference,
				Actor:          req.Actor,
			})
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, *mv)
			result.Slices = append(result.Slices, SaleSlice{
				LotID:      s.LotID,
				SupplierID: s.SupplierID,
				Weight:     weightOut,
				Quantity:   qtyOut,
				UnitCost:   s.UnitCost,
				Cost:       s.Cost,
			})
			total = total.Add(s.Cost)
			if s.Unpaid {
				lotID := s.LotID
				result.Warnings = append(result.Warnings, LedgerWarning{
					Code:    WarningUnpaidStock,
					LotID:   &lotID,
					Message: "sold stock that is not yet paid to its supplier",
				})
			}
		}
		result.TotalCost = RoundMoney(total)
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.hooks.committed(ctx, LedgerEvent{
		Command: "sale", Reference: req.Reference, Actor: req.Actor,
		BranchID: req.BranchID, ItemKeys: []string{req.Item.Key()}, OccurredAt: l.now(),
	}, result.Movements)
	return result, nil
}

// outboundMeasures converts a drawn cost measure into weight and quantity
// changes. Product weight leaves in proportion to units; the last unit takes
// whatever weight remains.
func outboundMeasures(lot *model.OwnershipLot, take decimal.Decimal) (weight, quantity decimal.Decimal) {
	if lot.ItemKind != model.ItemKindProduct {
		return take, decimal.Zero
	}
	if take.GreaterThanOrEqual(lot.TotalQuantity) {
		return lot.TotalWeight, lot.TotalQuantity
	}
	weight = RoundWeight(lot.TotalWeight.Mul(take).Div(lot.TotalQuantity))
	return minDecimal(weight, lot.TotalWeight), take
}

// ── Payment ─────────────────────────────────────────────────────────────────

func (l *ownershipLedger) ApplyPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	amount := roundStored(req.Amount)
	if !amount.IsPositive() {
		return nil, invalidInput("amount must be positive")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	snapshot, err := l.findLot(ctx, req.LotID)
	if err != nil {
		return nil, err
	}

	result := &PaymentResult{}
	err = l.uow.Run(ctx, "payment", []string{snapshot.Identity().Key()}, func(ctx context.Context, tx repository.LedgerTx) error {
		lot, err := tx.FindLotForUpdate(req.LotID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(lot.AmountOwed) {
			balance := snapshotOf(lot)
			balance.Available = lot.AmountOwed
			balance.Requested = amount
			return newLedgerError(KindPaymentExceedsOwed, balance,
				"payment %s exceeds amount owed %s on lot %s", amount, RoundMoney(lot.AmountOwed), lot.ID)
		}
		mv, err := l.recorder.Record(tx, lot, MovementInput{
			Type:       model.MovementPayment,
			PaidChange: amount,
			Reference:  req.Reference,
			Actor:      req.Actor,
		})
		if err != nil {
			return err
		}
		result.Lot = *lot
		result.Movement = *mv
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.hooks.committed(ctx, LedgerEvent{
		Command: "payment", Reference: req.Reference, Actor: req.Actor,
		BranchID: snapshot.BranchID, ItemKeys: []string{snapshot.ItemKey}, OccurredAt: l.now(),
	}, []model.OwnershipMovement{result.Movement})
	return result, nil
}

// ── Waiver ──────────────────────────────────────────────────────────────────

func (l *ownershipLedger) ApplyWaiver(ctx context.Context, req WaiverRequest) (*WaiverResult, error) {
	if strings.TrimSpace(req.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	if req.SourceLotID == req.TargetLotID {
		return nil, invalidInput("source and target lot must differ")
	}
	source, err := l.findLot(ctx, req.SourceLotID)
	if err != nil {
		return nil, err
	}
	target, err := l.findLot(ctx, req.TargetLotID)
	if err != nil {
		return nil, err
	}
	if source.SupplierID != model.MerchantSupplierID {
		return nil, invalidInput("waiver source lot %s is not merchant-owned", source.ID)
	}
	if target.SupplierID == model.MerchantSupplierID {
		return nil, invalidInput("waiver target lot %s has no supplier", target.ID)
	}
	if source.ItemKey != target.ItemKey {
		return nil, invalidInput("waiver lots hold different items (%s, %s)", source.ItemKey, target.ItemKey)
	}
	item := source.Item()
	if err := validateMeasure(item, req.Weight, req.Quantity); err != nil {
		return nil, err
	}
	requested := measureOf(item, req.Weight, req.Quantity)

	waiverID := uuid.New()
	result := &WaiverResult{WaiverID: waiverID}
	keys := []string{source.Identity().Key(), target.Identity().Key()}
	err = l.uow.Run(ctx, "waiver", keys, func(ctx context.Context, tx repository.LedgerTx) error {
		src, err := tx.FindLotForUpdate(req.SourceLotID)
		if err != nil {
			return err
		}
		dst, err := tx.FindLotForUpdate(req.TargetLotID)
		if err != nil {
			return err
		}
		if src.CostMeasure().LessThan(requested) {
			balance := snapshotOf(src)
			balance.Requested = requested
			return newLedgerError(KindInsufficientOwnership, balance,
				"merchant lot %s holds %s, waiver needs %s", src.ID, src.CostMeasure(), requested)
		}
		value := roundStored(requested.Mul(src.UnitCost))
		if value.GreaterThan(dst.AmountOwed) {
			balance := snapshotOf(dst)
			balance.Available = dst.AmountOwed
			balance.Requested = value
			return newLedgerError(KindPaymentExceedsOwed, balance,
				"waiver value %s exceeds amount owed %s on lot %s", RoundMoney(value), RoundMoney(dst.AmountOwed), dst.ID)
		}

		weightOut, qtyOut := outboundMeasures(src, requested)
		debit, err := l.recorder.Record(tx, src, MovementInput{
			Type:           model.MovementWaiver,
			WeightChange:   weightOut.Neg(),
			QuantityChange: qtyOut.Neg(),
			Reference:      req.Reference,
			CorrelationID:  &waiverID,
			Actor:          req.Actor,
		})
		if err != nil {
			return err
		}
		credit, err := l.recorder.Record(tx, dst, MovementInput{
			Type:          model.MovementWaiver,
			PaidChange:    value,
			Reference:     req.Reference,
			CorrelationID: &waiverID,
			Actor:         req.Actor,
		})
		if err != nil {
			return err
		}
		result.SourceLot = *src
		result.TargetLot = *dst
		result.SettledValue = RoundMoney(value)
		result.Movements = []model.OwnershipMovement{*debit, *credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.hooks.committed(ctx, LedgerEvent{
		Command: "waiver", Reference: req.Reference, Actor: req.Actor,
		BranchID: source.BranchID, ItemKeys: []string{source.ItemKey}, OccurredAt: l.now(),
	}, result.Movements)
	return result, nil
}

// ── Adjustment ──────────────────────────────────────────────────────────────

func (l *ownershipLedger) ApplyAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentResult, error) {
	if req.WeightChange.IsZero() && req.QuantityChange.IsZero() {
		return nil, invalidInput("adjustment must change weight or quantity")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, invalidInput("reason is required")
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, invalidInput("actor is required")
	}
	snapshot, err := l.findLot(ctx, req.LotID)
	if err != nil {
		return nil, err
	}
	if !fitsWeightScale(req.WeightChange) || !fitsWeightScale(req.QuantityChange) {
		return nil, invalidInput("adjustment may not carry more than %d decimals", WeightPlaces)
	}
	if snapshot.ItemKind == model.ItemKindProduct && !req.QuantityChange.Equal(req.QuantityChange.Truncate(0)) {
		return nil, invalidInput("product quantity must be whole units")
	}

	result := &AdjustmentResult{}
	err = l.uow.Run(ctx, "adjustment", []string{snapshot.Identity().Key()}, func(ctx context.Context, tx repository.LedgerTx) error {
		lot, err := tx.FindLotForUpdate(req.LotID)
		if err != nil {
			return err
		}
		mv, err := l.recorder.Record(tx, lot, MovementInput{
			Type:           model.MovementAdjustment,
			WeightChange:   req.WeightChange,
			QuantityChange: req.QuantityChange,
			Reference:      req.Reason,
			Actor:          req.Actor,
		})
		if err != nil {
			return err
		}
		result.Lot = *lot
		result.Movement = *mv
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.hooks.committed(ctx, LedgerEvent{
		Command: "adjustment", Reference: req.Reason, Actor: req.Actor,
		BranchID: snapshot.BranchID, ItemKeys: []string{snapshot.ItemKey}, OccurredAt: l.now(),
	}, []model.OwnershipMovement{result.Movement})
	return result, nil
}

// ── Queries ─────────────────────────────────────────────────────────────────

func (l *ownershipLedger) GetLot(ctx context.Context, id uuid.UUID) (*model.OwnershipLot, error) {
	return l.findLot(ctx, id)
}

func (l *ownershipLedger) ActiveLots(ctx context.Context, q LotQuery) ([]model.OwnershipLot, error) {
	filter := repository.LotFilter{
		BranchID:        q.BranchID,
		SupplierID:      q.SupplierID,
		IncludeDepleted: q.IncludeDepleted,
	}
	if q.Item != nil {
		if err := q.Item.Validate(); err != nil {
			return nil, invalidInput("%v", err)
		}
		filter.ItemKey = q.Item.Key()
	}
	return l.repo.ListLots(ctx, filter)
}

func (l *ownershipLedger) MovementHistory(ctx context.Context, lotID uuid.UUID) ([]model.OwnershipMovement, error) {
	if _, err := l.findLot(ctx, lotID); err != nil {
		return nil, err
	}
	return l.repo.ListMovements(ctx, lotID)
}

func (l *ownershipLedger) findLot(ctx context.Context, id uuid.UUID) (*model.OwnershipLot, error) {
	lot, err := l.repo.FindLot(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("lot %s not found", id)
		}
		return nil, err
	}
	return lot, nil
}

// ── helpers ─────────────────────────────────────────────────────────────────

// measureOf picks the cost measure of a request: units for products, grams
// for raw gold.
func measureOf(item model.ItemRef, weight, quantity decimal.Decimal) decimal.Decimal {
	if item.IsProduct() {
		return quantity
	}
	return weight
}

func validateMeasure(item model.ItemRef, weight, quantity decimal.Decimal) error {
	if weight.IsNegative() || quantity.IsNegative() {
		return invalidInput("weight and quantity must not be negative")
	}
	if !fitsWeightScale(weight) || !fitsWeightScale(quantity) {
		return invalidInput("weight and quantity may not carry more than %d decimals", WeightPlaces)
	}
	if item.IsProduct() {
		if !quantity.IsPositive() {
			return invalidInput("quantity must be positive for products")
		}
		if !quantity.Equal(quantity.Truncate(0)) {
			return invalidInput("product quantity must be whole units")
		}
		return nil
	}
	if !weight.IsPositive() {
		return invalidInput("weight must be positive for raw gold")
	}
	return nil
}

// identityKeys returns the sorted lock keys of lots and the same keys as a set.
func identityKeys(lots []model.OwnershipLot) ([]string, map[string]struct{}) {
	set := make(map[string]struct{}, len(lots))
	keys := make([]string, 0, len(lots))
	for i := range lots {
		k := lots[i].Identity().Key()
		if _, ok := set[k]; ok {
			continue
		}
		set[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, set
}
