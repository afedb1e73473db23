package ports

import (
	"context"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"

	"github.com/google/uuid"
)

// CreateCustomerRequest carries the input for registering a customer.
type CreateCustomerRequest struct {
	FullName string
	Email    string
}

// OpenAccountRequest carries the input for opening an account.
type OpenAccountRequest struct {
	CustomerID uuid.UUID
	Currency   string
}

// PostEntryRequest carries the input for a direct ledger posting.
type PostEntryRequest struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Direction     string
	AmountMinor   int64
	Currency      string
	Description   string
}

// DepositRequest carries the input for an idempotent deposit.
// IdempotencyKey is the caller-supplied key; the service mints the
// transaction id.
type DepositRequest struct {
	AccountID      uuid.UUID
	IdempotencyKey string
	AmountMinor    int64
	Currency       string
	Description    string
}

// DepositResult is what a deposit (first run or replay) hands back.
type DepositResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	BalanceMinor  int64     `json:"balance_minor"`
	Replayed      bool      `json:"replayed"`
}

// CustomerService defines customer registration and lookup.
type CustomerService interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*domain.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
}

// AccountService defines account lifecycle operations.
type AccountService interface {
	Open(ctx context.Context, req OpenAccountRequest) (*domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Block(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Unblock(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Close(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// LedgerService defines posting, deposits, balances and history.
type LedgerService interface {
	Post(ctx context.Context, req PostEntryRequest) (*domain.LedgerEntry, error)
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	Recent(ctx context.Context, accountID uuid.UUID, size int) ([]domain.LedgerEntry, error)
}
