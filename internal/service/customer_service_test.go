package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/internal/core/ports/mocks"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type customerTestDeps struct {
	svc          *CustomerServiceImpl
	customerRepo *mocks.MockCustomerRepository
	ctrl         *gomock.Controller
}

func setupCustomerService(t *testing.T) *customerTestDeps {
	ctrl := gomock.NewController(t)
	d := &customerTestDeps{
		customerRepo: mocks.NewMockCustomerRepository(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewCustomerService(d.customerRepo, zerolog.Nop())
	return d
}

func TestCustomerService_Create_Success(t *testing.T) {
	d := setupCustomerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.customerRepo.EXPECT().ExistsByEmail(ctx, "ada@example.com").Return(false, nil)
	d.customerRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	customer, err := d.svc.Create(ctx, ports.CreateCustomerRequest{
		FullName: "Ada Lovelace",
		Email:    "  Ada@Example.COM ",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", customer.Email)
	assert.Equal(t, "Ada Lovelace", customer.FullName)
	assert.NotEqual(t, uuid.Nil, customer.ID)
}

func TestCustomerService_Create_EmailTaken(t *testing.T) {
	d := setupCustomerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.customerRepo.EXPECT().ExistsByEmail(ctx, "ada@example.com").Return(true, nil)

	_, err := d.svc.Create(ctx, ports.CreateCustomerRequest{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CUST_002", appErr.Code)
}

func TestCustomerService_Create_RaceOnUniqueEmail(t *testing.T) {
	d := setupCustomerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	// Pre-check passes but another request wins the insert race.
	d.customerRepo.EXPECT().ExistsByEmail(ctx, "ada@example.com").Return(false, nil)
	d.customerRepo.EXPECT().Create(ctx, gomock.Any()).Return(domain.ErrDuplicateEmail)

	_, err := d.svc.Create(ctx, ports.CreateCustomerRequest{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CUST_002", appErr.Code)
}

func TestCustomerService_Create_RepoFailure(t *testing.T) {
	d := setupCustomerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.customerRepo.EXPECT().ExistsByEmail(ctx, gomock.Any()).Return(false, errors.New("db down"))

	_, err := d.svc.Create(ctx, ports.CreateCustomerRequest{FullName: "Ada", Email: "ada@example.com"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_001", appErr.Code)
}

func TestCustomerService_Get_Success(t *testing.T) {
	d := setupCustomerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.customerRepo.EXPECT().GetByID(ctx, id).Return(&domain.Customer{ID: id, FullName: "Ada"}, nil)

	customer, err := d.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, customer.ID)
}

func TestCustomerService_Get_NotFound(t *testing.T) {
	d := setupCustomerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.customerRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.Get(ctx, id)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CUST_001", appErr.Code)
}
