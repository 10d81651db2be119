package service

import (
	"context"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/plan"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type PlanService interface {
	CreatePlan(ctx context.Context, p *plan.Plan, charges []*charge.Charge) error
	GetPlan(ctx context.Context, id string) (*plan.Plan, error)
	ListPlans(ctx context.Context, filter types.Filter) ([]*plan.Plan, int, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	DeletePlan(ctx context.Context, id string) error

	AddCharge(ctx context.Context, planID string, ch *charge.Charge) error
	GetCharges(ctx context.Context, planID string) ([]*charge.Charge, error)
	RemoveCharge(ctx context.Context, chargeID string) error
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) CreatePlan(ctx context.Context, p *plan.Plan, charges []*charge.Charge) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if existing, err := s.PlanRepo.GetByCode(ctx, p.Code); err == nil && existing != nil {
		return ierr.NewError("plan code already exists").
			WithHintf("A plan with code %s already exists", p.Code).
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if p.ID == "" {
		p.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN)
	}
	if p.TenantID == "" {
		p.BaseModel = types.GetDefaultBaseModel(ctx)
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.PlanRepo.Create(txCtx, p); err != nil {
			return err
		}
		for _, ch := range charges {
			if err := s.addCharge(txCtx, p, ch); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *planService) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	return s.PlanRepo.Get(ctx, id)
}

func (s *planService) ListPlans(ctx context.Context, filter types.Filter) ([]*plan.Plan, int, error) {
	return s.PlanRepo.List(ctx, filter)
}

func (s *planService) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.PlanRepo.Update(ctx, p)
}

func (s *planService) DeletePlan(ctx context.Context, id string) error {
	return s.PlanRepo.Delete(ctx, id)
}

func (s *planService) AddCharge(ctx context.Context, planID string, ch *charge.Charge) error {
	p, err := s.PlanRepo.Get(ctx, planID)
	if err != nil {
		return err
	}
	return s.addCharge(ctx, p, ch)
}

func (s *planService) addCharge(ctx context.Context, p *plan.Plan, ch *charge.Charge) error {
	ch.PlanID = p.ID
	if err := ch.Validate(); err != nil {
		return err
	}
	if _, err := s.MetricRepo.Get(ctx, ch.MetricID); err != nil {
		return err
	}
	if ch.ID == "" {
		ch.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE)
	}
	for i := range ch.Filters {
		if ch.Filters[i].ID == "" {
			ch.Filters[i].ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE_FILTER)
		}
	}
	if ch.TenantID == "" {
		ch.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.ChargeRepo.Create(ctx, ch)
}

func (s *planService) GetCharges(ctx context.Context, planID string) ([]*charge.Charge, error) {
	return s.ChargeRepo.GetByPlan(ctx, planID)
}

func (s *planService) RemoveCharge(ctx context.Context, chargeID string) error {
	return s.ChargeRepo.Delete(ctx, chargeID)
}
