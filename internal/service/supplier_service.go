package service

import (
	"context"
	"errors"

	"goldledger/internal/dto"
	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/google/uuid"
)

// SupplierService maintains suppliers and their credit terms.
type SupplierService interface {
	Create(ctx context.Context, req dto.SupplierRequest) (*dto.SupplierResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.SupplierResponse, error)
	List(ctx context.Context) ([]dto.SupplierResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.SupplierRequest) (*dto.SupplierResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type supplierService struct {
	repo repository.SupplierRepository
}

func NewSupplierService(repo repository.SupplierRepository) SupplierService {
	return &supplierService{repo: repo}
}

func (s *supplierService) Create(ctx context.Context, req dto.SupplierRequest) (*dto.SupplierResponse, error) {
	sup := &model.Supplier{ID: uuid.New(), Active: true}
	applySupplierRequest(sup, req)
	if err := s.repo.Create(ctx, sup); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newLedgerError(KindConflict, nil, "supplier with tax id %q already exists", req.TaxID)
		}
		return nil, err
	}
	resp := supplierToResponse(sup)
	return &resp, nil
}

func (s *supplierService) GetByID(ctx context.Context, id uuid.UUID) (*dto.SupplierResponse, error) {
	sup, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := supplierToResponse(sup)
	return &resp, nil
}

func (s *supplierService) List(ctx context.Context) ([]dto.SupplierResponse, error) {
	suppliers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.SupplierResponse, len(suppliers))
	for i := range suppliers {
		resp[i] = supplierToResponse(&suppliers[i])
	}
	return resp, nil
}

func (s *supplierService) Update(ctx context.Context, id uuid.UUID, req dto.SupplierRequest) (*dto.SupplierResponse, error) {
	sup, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	applySupplierRequest(sup, req)
	if err := s.repo.Update(ctx, sup); err != nil {
		return nil, err
	}
	resp := supplierToResponse(sup)
	return &resp, nil
}

func (s *supplierService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *supplierService) find(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("supplier %s not found", id)
	}
	return sup, err
}

func applySupplierRequest(sup *model.Supplier, req dto.SupplierRequest) {
	sup.Name = req.Name
	sup.TaxID = req.TaxID
	sup.Phone = req.Phone
	sup.Email = req.Email
	sup.CreditLimit = req.CreditLimit
	sup.CreditLimitEnforced = req.CreditLimitEnforced
	sup.OpeningBalance = req.OpeningBalance
}

func supplierToResponse(s *model.Supplier) dto.SupplierResponse {
	return dto.SupplierResponse{
		ID:                  s.ID.String(),
		Name:                s.Name,
		TaxID:               s.TaxID,
		Phone:               s.Phone,
		Email:               s.Email,
		CreditLimit:         s.CreditLimit,
		CreditLimitEnforced: s.CreditLimitEnforced,
		OpeningBalance:      s.OpeningBalance,
		Active:              s.Active,
	}
}
