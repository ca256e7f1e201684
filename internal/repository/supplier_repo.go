package repository

import (
	"context"
	"sort"
	"sync"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, s *model.Supplier) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepository(db *gorm.DB) SupplierRepository { return &supplierRepo{db: db} }

func (r *supplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *supplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *supplierRepo) List(ctx context.Context) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.WithContext(ctx).Where("active = true").Order("name ASC").Find(&suppliers).Error
	return suppliers, err
}

func (r *supplierRepo) Update(ctx context.Context, s *model.Supplier) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

func (r *supplierRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Supplier{}).Where("id = ?", id).Update("active", false).Error
}

// MemorySupplierRepository backs STORE_BACKEND=memory and unit tests.
type MemorySupplierRepository struct {
	mu        sync.RWMutex
	suppliers map[uuid.UUID]model.Supplier
}

func NewMemorySupplierRepository(seed ...model.Supplier) *MemorySupplierRepository {
	r := &MemorySupplierRepository{suppliers: make(map[uuid.UUID]model.Supplier)}
	for _, s := range seed {
		r.suppliers[s.ID] = s
	}
	return r
}

var _ SupplierRepository = (*MemorySupplierRepository)(nil)

func (r *MemorySupplierRepository) Create(_ context.Context, s *model.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if _, ok := r.suppliers[s.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range r.suppliers {
		if existing.TaxID == s.TaxID {
			return ErrDuplicate
		}
	}
	r.suppliers[s.ID] = *s
	return nil
}

func (r *MemorySupplierRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemorySupplierRepository) List(_ context.Context) ([]model.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemorySupplierRepository) Update(_ context.Context, s *model.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[s.ID]; !ok {
		return ErrNotFound
	}
	r.suppliers[s.ID] = *s
	return nil
}

func (r *MemorySupplierRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return ErrNotFound
	}
	s.Active = false
	r.suppliers[id] = s
	return nil
}
