package service

import (
	"context"

	"github.com/billix/billix/internal/domain/customer"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	GetCustomer(ctx context.Context, id string) (*customer.Customer, error)
	GetCustomerByExternalID(ctx context.Context, externalID string) (*customer.Customer, error)
	ListCustomers(ctx context.Context, filter types.Filter) ([]*customer.Customer, int, error)
	UpdateCustomer(ctx context.Context, c *customer.Customer) error
	DeleteCustomer(ctx context.Context, id string) error
}

type customerService struct {
	ServiceParams
}

func NewCustomerService(params ServiceParams) CustomerService {
	return &customerService{ServiceParams: params}
}

func (s *customerService) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if existing, err := s.CustomerRepo.GetByExternalID(ctx, c.ExternalID); err == nil && existing != nil {
		return ierr.NewError("customer external_id already exists").
			WithHintf("A customer with external ID %s already exists", c.ExternalID).
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if c.ID == "" {
		c.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER)
	}
	if c.TenantID == "" {
		c.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	return s.CustomerRepo.Create(ctx, c)
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	return s.CustomerRepo.Get(ctx, id)
}

func (s *customerService) GetCustomerByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	return s.CustomerRepo.GetByExternalID(ctx, externalID)
}

func (s *customerService) ListCustomers(ctx context.Context, filter types.Filter) ([]*customer.Customer, int, error) {
	return s.CustomerRepo.List(ctx, filter)
}

func (s *customerService) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.CustomerRepo.Update(ctx, c)
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	subs, err := s.SubRepo.ListByCustomer(ctx, id)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.SubscriptionStatus == types.SubscriptionStatusActive {
			return ierr.NewError("customer has active subscriptions").
				WithHint("Terminate the customer's subscriptions before deleting").
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return s.CustomerRepo.Delete(ctx, id)
}
