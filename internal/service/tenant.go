package service

import (
	"context"

	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/types"
)

type TenantService interface {
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
}

type tenantService struct {
	ServiceParams
}

func NewTenantService(params ServiceParams) TenantService {
	return &tenantService{ServiceParams: params}
}

func (s *tenantService) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT)
	}
	if t.TenantID == "" {
		t.BaseModel = types.GetDefaultBaseModel(ctx)
		t.TenantID = t.ID
	}
	return s.TenantRepo.Create(ctx, t)
}

func (s *tenantService) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.TenantRepo.Get(ctx, id)
}

func (s *tenantService) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.TenantRepo.Update(ctx, t)
}
