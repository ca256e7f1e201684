package repository

import (
	"context"
	"sort"
	"sync"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryLedgerStore is an in-process LedgerRepository. Units of work stage
// their writes and commit them atomically under the store mutex; a lot whose
// version moved since it was read fails the commit with ErrVersionConflict.
type MemoryLedgerStore struct {
	mu             sync.RWMutex
	lots           map[uuid.UUID]model.OwnershipLot
	movements      map[uuid.UUID][]model.OwnershipMovement // lotID -> ordered history
	conversions    map[uuid.UUID]model.KaratConversion
	consolidations map[uuid.UUID]model.ConsolidationBatch
	sources        map[uuid.UUID][]model.ConsolidationSource
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		lots:           make(map[uuid.UUID]model.OwnershipLot),
		movements:      make(map[uuid.UUID][]model.OwnershipMovement),
		conversions:    make(map[uuid.UUID]model.KaratConversion),
		consolidations: make(map[uuid.UUID]model.ConsolidationBatch),
		sources:        make(map[uuid.UUID][]model.ConsolidationSource),
	}
}

var _ LedgerRepository = (*MemoryLedgerStore)(nil)

func (s *MemoryLedgerStore) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryLedgerTx{
		s:     s,
		lots:  make(map[uuid.UUID]*model.OwnershipLot),
		read:  make(map[uuid.UUID]int64),
		dirty: make(map[uuid.UUID]bool),
		added: make(map[uuid.UUID]bool),
		seq:   make(map[uuid.UUID]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *MemoryLedgerStore) FindLot(_ context.Context, id uuid.UUID) (*model.OwnershipLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &lot, nil
}

func (s *MemoryLedgerStore) ListLots(_ context.Context, filter LotFilter) ([]model.OwnershipLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OwnershipLot, 0)
	for _, lot := range s.lots {
		if matchLot(&lot, filter) {
			out = append(out, lot)
		}
	}
	sortLots(out)
	return out, nil
}

func (s *MemoryLedgerStore) ListMovements(_ context.Context, lotID uuid.UUID) ([]model.OwnershipMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.movements[lotID]
	out := make([]model.OwnershipMovement, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryLedgerStore) FindConversion(_ context.Context, id uuid.UUID) (*model.KaratConversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryLedgerStore) FindConsolidation(_ context.Context, id uuid.UUID) (*model.ConsolidationBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.consolidations[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.SourceLotIDs = nil
	for _, src := range s.sources[id] {
		b.SourceLotIDs = append(b.SourceLotIDs, src.LotID)
	}
	return &b, nil
}

func (s *MemoryLedgerStore) SumOwedBySupplier(_ context.Context, supplierID uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, lot := range s.lots {
		if lot.SupplierID == supplierID && lot.Status != model.LotDepleted {
			total = total.Add(lot.AmountOwed)
		}
	}
	return total, nil
}

func (s *MemoryLedgerStore) ListLotIDs(ctx context.Context) ([]uuid.UUID, error) {
	lots, err := s.ListLots(ctx, LotFilter{IncludeDepleted: true})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(lots))
	for i, lot := range lots {
		ids[i] = lot.ID
	}
	return ids, nil
}

// ── unit of work ────────────────────────────────────────────────────────────

type memoryLedgerTx struct {
	s *MemoryLedgerStore

	lots  map[uuid.UUID]*model.OwnershipLot // staged copies
	read  map[uuid.UUID]int64               // version observed at first read
	dirty map[uuid.UUID]bool
	added map[uuid.UUID]bool
	seq   map[uuid.UUID]int64

	movements      []model.OwnershipMovement
	conversions    []model.KaratConversion
	consolidations []model.ConsolidationBatch
	sources        [][]model.ConsolidationSource
}

// stage returns the staged copy of a committed lot, copying it on first use.
func (t *memoryLedgerTx) stage(lot model.OwnershipLot) *model.OwnershipLot {
	if staged, ok := t.lots[lot.ID]; ok {
		return staged
	}
	c := lot
	t.lots[lot.ID] = &c
	t.read[lot.ID] = lot.Version
	return &c
}

// view merges committed lots with the staged ones.
func (t *memoryLedgerTx) view() []*model.OwnershipLot {
	t.s.mu.RLock()
	base := make([]model.OwnershipLot, 0, len(t.s.lots))
	for id, lot := range t.s.lots {
		if _, staged := t.lots[id]; !staged {
			base = append(base, lot)
		}
	}
	t.s.mu.RUnlock()

	out := make([]*model.OwnershipLot, 0, len(base)+len(t.lots))
	for _, lot := range t.lots {
		out = append(out, lot)
	}
	for i := range base {
		out = append(out, &base[i])
	}
	return out
}

func (t *memoryLedgerTx) FindOpenLot(identity model.LotIdentity) (*model.OwnershipLot, error) {
	key := identity.Item.Key()
	for _, lot := range t.view() {
		if lot.Status == model.LotOpen && lot.ItemKey == key &&
			lot.BranchID == identity.BranchID && lot.SupplierID == identity.SupplierID {
			c := *t.stage(*lot)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryLedgerTx) FindLotForUpdate(id uuid.UUID) (*model.OwnershipLot, error) {
	if staged, ok := t.lots[id]; ok {
		c := *staged
		return &c, nil
	}
	t.s.mu.RLock()
	lot, ok := t.s.lots[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	c := *t.stage(lot)
	return &c, nil
}

func (t *memoryLedgerTx) ListLotsForUpdate(filter LotFilter) ([]model.OwnershipLot, error) {
	out := make([]model.OwnershipLot, 0)
	for _, lot := range t.view() {
		if matchLot(lot, filter) {
			out = append(out, *t.stage(*lot))
		}
	}
	sortLots(out)
	return out, nil
}

func (t *memoryLedgerTx) CreateLot(lot *model.OwnershipLot) error {
	if _, ok := t.lots[lot.ID]; ok {
		return ErrDuplicate
	}
	if lot.Status == model.LotOpen {
		if _, err := t.FindOpenLot(lot.Identity()); err == nil {
			return ErrDuplicate
		}
	}
	c := *lot
	t.lots[lot.ID] = &c
	t.added[lot.ID] = true
	t.dirty[lot.ID] = true
	return nil
}

func (t *memoryLedgerTx) UpdateLot(lot *model.OwnershipLot) error {
	staged, ok := t.lots[lot.ID]
	if !ok {
		if _, err := t.FindLotForUpdate(lot.ID); err != nil {
			return err
		}
		staged = t.lots[lot.ID]
	}
	if staged.Version != lot.Version {
		return ErrVersionConflict
	}
	lot.Version++
	*staged = *lot
	t.dirty[lot.ID] = true
	return nil
}

func (t *memoryLedgerTx) NextMovementSequence(lotID uuid.UUID) (int64, error) {
	next, ok := t.seq[lotID]
	if !ok {
		t.s.mu.RLock()
		next = int64(len(t.s.movements[lotID]))
		t.s.mu.RUnlock()
	}
	next++
	t.seq[lotID] = next
	return next, nil
}

func (t *memoryLedgerTx) CreateMovement(m *model.OwnershipMovement) error {
	t.movements = append(t.movements, *m)
	return nil
}

func (t *memoryLedgerTx) CreateConversion(c *model.KaratConversion) error {
	t.conversions = append(t.conversions, *c)
	return nil
}

func (t *memoryLedgerTx) CreateConsolidation(b *model.ConsolidationBatch, sources []model.ConsolidationSource) error {
	t.consolidations = append(t.consolidations, *b)
	t.sources = append(t.sources, append([]model.ConsolidationSource(nil), sources...))
	return nil
}

func (t *memoryLedgerTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id := range t.dirty {
		current, exists := t.s.lots[id]
		if t.added[id] {
			if exists {
				return ErrDuplicate
			}
			continue
		}
		if !exists || current.Version != t.read[id] {
			return ErrVersionConflict
		}
	}
	for id := range t.added {
		lot := t.lots[id]
		if lot.Status != model.LotOpen {
			continue
		}
		for otherID, other := range t.s.lots {
			if staged, ok := t.lots[otherID]; ok {
				other = *staged
			}
			if otherID != id && other.Status == model.LotOpen && other.ItemKey == lot.ItemKey &&
				other.BranchID == lot.BranchID && other.SupplierID == lot.SupplierID {
				return ErrDuplicate
			}
		}
	}

	for id := range t.dirty {
		t.s.lots[id] = *t.lots[id]
	}
	for _, m := range t.movements {
		t.s.movements[m.LotID] = append(t.s.movements[m.LotID], m)
	}
	for _, c := range t.conversions {
		t.s.conversions[c.ID] = c
	}
	for i, b := range t.consolidations {
		b.SourceLotIDs = nil
		t.s.consolidations[b.ID] = b
		t.s.sources[b.ID] = t.sources[i]
	}
	return nil
}

func matchLot(lot *model.OwnershipLot, f LotFilter) bool {
	if f.ItemKey != "" && lot.ItemKey != f.ItemKey {
		return false
	}
	if f.BranchID != nil && lot.BranchID != *f.BranchID {
		return false
	}
	if f.SupplierID != nil && lot.SupplierID != *f.SupplierID {
		return false
	}
	if !f.IncludeDepleted && lot.Status == model.LotDepleted {
		return false
	}
	if f.OnlyWithStock && !lot.HasStock() {
		return false
	}
	if f.OnlyOwed && !lot.AmountOwed.IsPositive() {
		return false
	}
	return true
}

func sortLots(lots []model.OwnershipLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].ID.String() < lots[j].ID.String()
		}
		return lots[i].CreatedAt.Before(lots[j].CreatedAt)
	})
}
