package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"
	"github.com/sergiomarchado/minicorebank/pkg/iban"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ibanMintAttempts caps how many freshly generated IBANs we try before
// giving up on an open request. Collisions need ~10^22 accounts to be
// likely, so more than one attempt is already paranoia.
const ibanMintAttempts = 5

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo  ports.AccountRepository
	customerRepo ports.CustomerRepository
	ibanGen      *iban.Generator
	log          zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	customerRepo ports.CustomerRepository,
	ibanGen *iban.Generator,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo:  accountRepo,
		customerRepo: customerRepo,
		ibanGen:      ibanGen,
		log:          log,
	}
}

// Open creates an account for an existing customer, minting a Spanish IBAN.
// The IBAN uniqueness constraint is the arbiter: on a collision we mint
// again, up to ibanMintAttempts times.
func (s *AccountServiceImpl) Open(ctx context.Context, req ports.OpenAccountRequest) (*domain.Account, error) {
	currency, ok := domain.ParseCurrency(req.Currency)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported currency %q", req.Currency))
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get customer: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrCustomerNotFound()
	}

	var lastErr error
	for attempt := 0; attempt < ibanMintAttempts; attempt++ {
		code, err := s.ibanGen.GenerateES()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate iban: %w", err))
		}

		account := domain.NewAccount(req.CustomerID, code, currency)
		err = s.accountRepo.Create(ctx, account)
		if err == nil {
			s.log.Info().
				Str("account_id", account.ID.String()).
				Str("customer_id", req.CustomerID.String()).
				Str("currency", string(currency)).
				Msg("account opened")
			return account, nil
		}
		if !errors.Is(err, domain.ErrDuplicateIBAN) {
			return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
		}

		lastErr = err
		s.log.Warn().
			Int("attempt", attempt+1).
			Msg("iban collision, minting again")
	}

	return nil, apperror.ErrIbanCollisionExhausted(lastErr)
}

// Get returns an account by id.
func (s *AccountServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return account, nil
}

// Block moves an account to BLOCKED.
func (s *AccountServiceImpl) Block(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.transition(ctx, id, domain.AccountStatusBlocked)
}

// Unblock moves a blocked account back to ACTIVE.
func (s *AccountServiceImpl) Unblock(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.transition(ctx, id, domain.AccountStatusActive)
}

// Close moves an account to CLOSED. Closed is terminal.
func (s *AccountServiceImpl) Close(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.transition(ctx, id, domain.AccountStatusClosed)
}

// transition applies a status change guarded by the domain state machine
// and an optimistic version check against concurrent writers.
func (s *AccountServiceImpl) transition(ctx context.Context, id uuid.UUID, to domain.AccountStatus) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if !account.CanTransition(to) {
		return nil, apperror.ErrInvalidStatusTransition(string(account.Status), string(to))
	}

	if err := s.accountRepo.UpdateStatus(ctx, id, to, account.Version); err != nil {
		if errors.Is(err, domain.ErrVersionMismatch) {
			return nil, apperror.ErrVersionConflict()
		}
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	account.Status = to
	account.Version++

	s.log.Info().
		Str("account_id", id.String()).
		Str("status", string(to)).
		Msg("account status changed")

	return account, nil
}
