package repository

import (
	"context"
	"errors"
	"fmt"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a lot, conversion or batch does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict means the lot changed since it was read.
	ErrVersionConflict = errors.New("lot was modified concurrently")
	// ErrDuplicate means a second open lot was created for the same identity.
	ErrDuplicate = errors.New("duplicate record")
)

// LotFilter narrows lot queries. Zero values mean "any".
type LotFilter struct {
	ItemKey    string
	BranchID   *uuid.UUID
	SupplierID *uuid.UUID
	// IncludeDepleted also returns lots kept only for audit.
	IncludeDepleted bool
	// OnlyWithStock keeps lots whose cost measure is positive.
	OnlyWithStock bool
	// OnlyOwed keeps lots with a positive AmountOwed.
	OnlyOwed bool
}

// LedgerRepository is the persistence contract of the ownership ledger.
// Every balance change runs through WithinTx; the remaining methods are
// committed-snapshot reads.
type LedgerRepository interface {
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	FindLot(ctx context.Context, id uuid.UUID) (*model.OwnershipLot, error)
	ListLots(ctx context.Context, filter LotFilter) ([]model.OwnershipLot, error)
	ListMovements(ctx context.Context, lotID uuid.UUID) ([]model.OwnershipMovement, error)
	FindConversion(ctx context.Context, id uuid.UUID) (*model.KaratConversion, error)
	FindConsolidation(ctx context.Context, id uuid.UUID) (*model.ConsolidationBatch, error)
	SumOwedBySupplier(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error)
	ListLotIDs(ctx context.Context) ([]uuid.UUID, error)
}

// LedgerTx is the write side of one unit of work. Lots returned by the
// *ForUpdate / FindOpenLot methods stay locked until the unit of work ends.
type LedgerTx interface {
	FindOpenLot(identity model.LotIdentity) (*model.OwnershipLot, error)
	FindLotForUpdate(id uuid.UUID) (*model.OwnershipLot, error)
	ListLotsForUpdate(filter LotFilter) ([]model.OwnershipLot, error)
	CreateLot(lot *model.OwnershipLot) error
	// UpdateLot persists balances and status, failing with ErrVersionConflict
	// when lot.Version is stale. On success lot.Version is incremented.
	UpdateLot(lot *model.OwnershipLot) error
	NextMovementSequence(lotID uuid.UUID) (int64, error)
	CreateMovement(m *model.OwnershipMovement) error
	CreateConversion(c *model.KaratConversion) error
	CreateConsolidation(b *model.ConsolidationBatch, sources []model.ConsolidationSource) error
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerTx{tx: tx})
	})
}

func (r *ledgerRepo) FindLot(ctx context.Context, id uuid.UUID) (*model.OwnershipLot, error) {
	var lot model.OwnershipLot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

func (r *ledgerRepo) ListLots(ctx context.Context, filter LotFilter) ([]model.OwnershipLot, error) {
	var lots []model.OwnershipLot
	err := applyLotFilter(r.db.WithContext(ctx), filter).
		Order("created_at ASC, id ASC").
		Find(&lots).Error
	return lots, err
}

func (r *ledgerRepo) ListMovements(ctx context.Context, lotID uuid.UUID) ([]model.OwnershipMovement, error) {
	var movements []model.OwnershipMovement
	err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("sequence ASC").
		Find(&movements).Error
	return movements, err
}

func (r *ledgerRepo) FindConversion(ctx context.Context, id uuid.UUID) (*model.KaratConversion, error) {
	var c model.KaratConversion
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *ledgerRepo) FindConsolidation(ctx context.Context, id uuid.UUID) (*model.ConsolidationBatch, error) {
	var b model.ConsolidationBatch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	var sources []model.ConsolidationSource
	if err := r.db.WithContext(ctx).Where("batch_id = ?", id).Find(&sources).Error; err != nil {
		return nil, err
	}
	for _, s := range sources {
		b.SourceLotIDs = append(b.SourceLotIDs, s.LotID)
	}
	return &b, nil
}

func (r *ledgerRepo) SumOwedBySupplier(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := r.db.WithContext(ctx).Model(&model.OwnershipLot{}).
		Select("COALESCE(SUM(amount_owed), 0)").
		Where("supplier_id = ? AND status <> ?", supplierID, model.LotDepleted).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}

func (r *ledgerRepo) ListLotIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.OwnershipLot{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

// ── transaction scope ───────────────────────────────────────────────────────

type gormLedgerTx struct{ tx *gorm.DB }

func (t *gormLedgerTx) forUpdate() *gorm.DB {
	return t.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormLedgerTx) FindOpenLot(identity model.LotIdentity) (*model.OwnershipLot, error) {
	var lot model.OwnershipLot
	err := t.forUpdate().
		Where("item_key = ? AND branch_id = ? AND supplier_id = ? AND status = ?",
			identity.Item.Key(), identity.BranchID, identity.SupplierID, model.LotOpen).
		First(&lot).Error
	if err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

func (t *gormLedgerTx) FindLotForUpdate(id uuid.UUID) (*model.OwnershipLot, error) {
	var lot model.OwnershipLot
	if err := t.forUpdate().First(&lot, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

func (t *gormLedgerTx) ListLotsForUpdate(filter LotFilter) ([]model.OwnershipLot, error) {
	var lots []model.OwnershipLot
	err := applyLotFilter(t.forUpdate(), filter).
		Order("created_at ASC, id ASC").
		Find(&lots).Error
	return lots, err
}

func (t *gormLedgerTx) CreateLot(lot *model.OwnershipLot) error {
	return translate(t.tx.Create(lot).Error)
}

func (t *gormLedgerTx) UpdateLot(lot *model.OwnershipLot) error {
	res := t.tx.Model(&model.OwnershipLot{}).
		Where("id = ? AND version = ?", lot.ID, lot.Version).
		Updates(map[string]interface{}{
			"status":           lot.Status,
			"total_weight":     lot.TotalWeight,
			"total_quantity":   lot.TotalQuantity,
			"unit_cost":        lot.UnitCost,
			"total_cost":       lot.TotalCost,
			"amount_paid":      lot.AmountPaid,
			"amount_owed":      lot.AmountOwed,
			"version":          lot.Version + 1,
			"last_movement_at": lot.LastMovementAt,
			"sealed_at":        lot.SealedAt,
			"depleted_at":      lot.DepletedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	lot.Version++
	return nil
}

func (t *gormLedgerTx) NextMovementSequence(lotID uuid.UUID) (int64, error) {
	var seq int64
	err := t.tx.Model(&model.OwnershipMovement{}).
		Select("COALESCE(MAX(sequence), 0) + 1").
		Where("lot_id = ?", lotID).
		Scan(&seq).Error
	return seq, err
}

func (t *gormLedgerTx) CreateMovement(m *model.OwnershipMovement) error {
	return translate(t.tx.Create(m).Error)
}

func (t *gormLedgerTx) CreateConversion(c *model.KaratConversion) error {
	return translate(t.tx.Create(c).Error)
}

func (t *gormLedgerTx) CreateConsolidation(b *model.ConsolidationBatch, sources []model.ConsolidationSource) error {
	if err := t.tx.Create(b).Error; err != nil {
		return translate(err)
	}
	if len(sources) == 0 {
		return nil
	}
	return translate(t.tx.Create(&sources).Error)
}

func applyLotFilter(q *gorm.DB, f LotFilter) *gorm.DB {
	q = q.Model(&model.OwnershipLot{})
	if f.ItemKey != "" {
		q = q.Where("item_key = ?", f.ItemKey)
	}
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if !f.IncludeDepleted {
		q = q.Where("status <> ?", model.LotDepleted)
	}
	if f.OnlyWithStock {
		q = q.Where("(item_kind = ? AND total_quantity > 0) OR (item_kind <> ? AND total_weight > 0)",
			model.ItemKindProduct, model.ItemKindProduct)
	}
	if f.OnlyOwed {
		q = q.Where("amount_owed > 0")
	}
	return q
}

// translate maps driver errors onto the repository sentinels. Requires the
// gorm.Config TranslateError flag set by infra.NewDatabase.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
