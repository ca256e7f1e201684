package service

import (
	"context"
	"errors"

	"goldledger/internal/dto"
	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
)

type ProductService interface {
	Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, name string) ([]dto.ProductResponse, error)
}

type productService struct {
	repo     repository.ProductRepository
	purities PurityTable
}

func NewProductService(repo repository.ProductRepository, purities PurityTable) ProductService {
	return &productService{repo: repo, purities: purities}
}

func (s *productService) Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error) {
	if _, err := s.purities.Purity(req.KaratTypeID); err != nil {
		return nil, err
	}
	p := &model.Product{
		ID:            uuid.New(),
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		KaratTypeID:   req.KaratTypeID,
		NominalWeight: req.NominalWeight,
		Active:        true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newLedgerError(KindConflict, nil, "product with sku %q already exists", req.SKU)
		}
		return nil, err
	}
	resp := productToResponse(p)
	return &resp, nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("product %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	resp := productToResponse(p)
	return &resp, nil
}

func (s *productService) List(ctx context.Context, name string) ([]dto.ProductResponse, error) {
	products, err := s.repo.List(ctx, name)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ProductResponse, len(products))
	for i := range products {
		resp[i] = productToResponse(&products[i])
	}
	return resp, nil
}

func productToResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:            p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		KaratTypeID:   p.KaratTypeID,
		NominalWeight: p.NominalWeight,
		Active:        p.Active,
	}
}
