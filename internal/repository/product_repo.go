package repository

import (
	"context"
	"sort"
	"sync"

	"goldledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository is the catalog lookup used to describe lots in alerts.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, nameFilter string) ([]model.Product, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, nameFilter string) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Where("active = true")
	if nameFilter != "" {
		q = q.Where("name ILIKE ?", "%"+nameFilter+"%")
	}
	err := q.Order("name ASC").Find(&products).Error
	return products, err
}

type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
}

func NewMemoryProductRepository(seed ...model.Product) *MemoryProductRepository {
	r := &MemoryProductRepository{products: make(map[uuid.UUID]model.Product)}
	for _, p := range seed {
		r.products[p.ID] = p
	}
	return r
}

var _ ProductRepository = (*MemoryProductRepository)(nil)

func (r *MemoryProductRepository) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, existing := range r.products {
		if existing.SKU == p.SKU {
			return ErrDuplicate
		}
	}
	r.products[p.ID] = *p
	return nil
}

func (r *MemoryProductRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProductRepository) List(_ context.Context, nameFilter string) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.Active && (nameFilter == "" || containsFold(p.Name, nameFilter)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
