package ports

import (
	"context"
	"time"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerRepository defines persistence operations for customers.
// Lookups return (nil, nil) when the record is absent.
type CustomerRepository interface {
	// Create inserts a customer. Returns domain.ErrDuplicateEmail when the
	// case-insensitive email uniqueness constraint rejects the insert.
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// Create inserts an account. Returns domain.ErrDuplicateIBAN when the
	// IBAN uniqueness constraint rejects the insert.
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// UpdateStatus performs a compare-and-swap on the account row: the update
	// applies only if the stored version equals expectedVersion, and
	// increments the version on success. Returns domain.ErrVersionMismatch
	// when another writer got there first.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, expectedVersion int) error
}

// LedgerRepository defines persistence for the append-only entry store.
// Entries are immutable: there are no update or delete operations.
type LedgerRepository interface {
	// Create appends an entry within a database transaction. Returns
	// domain.ErrDuplicateTransactionID when the transaction_id uniqueness
	// constraint rejects the insert: under a race between two postings with
	// the same transaction id, the constraint guarantees exactly one append.
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// Recent returns at most limit entries ordered newest first
	// (created_at descending, insertion order breaking ties).
	Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	// BalanceOf folds every entry for the account into a signed sum:
	// CREDIT adds, DEBIT subtracts. No entries means zero.
	BalanceOf(ctx context.Context, accountID uuid.UUID) (int64, error)
	// BalanceOfTx is BalanceOf through an open transaction, so the sum
	// includes entries appended in that transaction but not yet committed.
	BalanceOfTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error)
}

// IdempotencyRepository defines persistence for deposit idempotency records.
type IdempotencyRepository interface {
	// Create inserts a record within a database transaction. Returns
	// domain.ErrDuplicateIdempotencyKey when the key is already held.
	Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReplayCache is a best-effort cache in front of IdempotencyRepository.
// Failures degrade to the durable store and are never fatal.
type ReplayCache interface {
	// Get returns the cached response for a key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
