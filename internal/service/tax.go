package service

import (
	"context"

	"github.com/billix/billix/internal/domain/tax"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type TaxService interface {
	CreateTax(ctx context.Context, t *tax.Tax) error
	GetTax(ctx context.Context, id string) (*tax.Tax, error)

	// ApplyTax binds a tax to a customer, fee owner or the tenant itself
	ApplyTax(ctx context.Context, taxID string, taxableType types.TaxableType, taxableID string) (*tax.AppliedTax, error)
	RemoveAppliedTax(ctx context.Context, appliedID string) error
	ListApplied(ctx context.Context, taxableType types.TaxableType, taxableID string) ([]*tax.AppliedTax, error)
}

type taxService struct {
	ServiceParams
}

func NewTaxService(params ServiceParams) TaxService {
	return &taxService{ServiceParams: params}
}

func (s *taxService) CreateTax(ctx context.Context, t *tax.Tax) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if existing, err := s.TaxRepo.GetByCode(ctx, t.Code); err == nil && existing != nil {
		return ierr.NewError("tax code already exists").
			WithHintf("A tax with code %s already exists", t.Code).
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if t.ID == "" {
		t.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX)
	}
	if t.TenantID == "" {
		t.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.TaxRepo.Create(ctx, t)
}

func (s *taxService) GetTax(ctx context.Context, id string) (*tax.Tax, error) {
	return s.TaxRepo.Get(ctx, id)
}

func (s *taxService) ApplyTax(ctx context.Context, taxID string, taxableType types.TaxableType, taxableID string) (*tax.AppliedTax, error) {
	if _, err := s.TaxRepo.Get(ctx, taxID); err != nil {
		return nil, err
	}
	at := &tax.AppliedTax{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_APPLIED_TAX),
		TaxID:       taxID,
		TaxableType: taxableType,
		TaxableID:   taxableID,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := s.TaxRepo.CreateApplied(ctx, at); err != nil {
		return nil, err
	}
	return at, nil
}

func (s *taxService) RemoveAppliedTax(ctx context.Context, appliedID string) error {
	return s.TaxRepo.DeleteApplied(ctx, appliedID)
}

func (s *taxService) ListApplied(ctx context.Context, taxableType types.TaxableType, taxableID string) ([]*tax.AppliedTax, error) {
	return s.TaxRepo.ListApplied(ctx, taxableType, taxableID)
}
