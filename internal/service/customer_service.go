package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CustomerServiceImpl implements ports.CustomerService.
type CustomerServiceImpl struct {
	customerRepo ports.CustomerRepository
	log          zerolog.Logger
}

// NewCustomerService creates a new CustomerServiceImpl.
func NewCustomerService(customerRepo ports.CustomerRepository, log zerolog.Logger) *CustomerServiceImpl {
	return &CustomerServiceImpl{
		customerRepo: customerRepo,
		log:          log,
	}
}

// Create registers a customer. Email comparison is case-insensitive; the
// pre-check gives a friendly error on the common path and the unique
// constraint settles races.
func (s *CustomerServiceImpl) Create(ctx context.Context, req ports.CreateCustomerRequest) (*domain.Customer, error) {
	email := domain.NormalizeEmail(req.Email)

	taken, err := s.customerRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if taken {
		return nil, apperror.ErrEmailInUse()
	}

	customer := domain.NewCustomer(req.FullName, email)
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, apperror.ErrEmailInUse()
		}
		return nil, apperror.InternalError(fmt.Errorf("create customer: %w", err))
	}

	s.log.Info().
		Str("customer_id", customer.ID.String()).
		Msg("customer registered")

	return customer, nil
}

// Get returns a customer by id.
func (s *CustomerServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get customer: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrCustomerNotFound()
	}
	return customer, nil
}
