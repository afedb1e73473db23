package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- In-Memory Customer Repo ---

type inMemoryCustomerRepo struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*domain.Customer
}

func newInMemoryCustomerRepo() *inMemoryCustomerRepo {
	return &inMemoryCustomerRepo{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (r *inMemoryCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.customers {
		if strings.EqualFold(existing.Email, c.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	r.customers[c.ID] = c
	return nil
}

func (r *inMemoryCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *inMemoryCustomerRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.IBAN == a.IBAN {
			return domain.ErrDuplicateIBAN
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accounts[id]
	return ok, nil
}

func (r *inMemoryAccountRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Version != expectedVersion {
		return domain.ErrVersionMismatch
	}
	a.Status = status
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu       sync.RWMutex
	entries  []domain.LedgerEntry
	reserved map[uuid.UUID]struct{} // transaction ids staged by open transactions
	nextSeq  int64
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{reserved: make(map[uuid.UUID]struct{})}
}

func (r *inMemoryLedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	mtx, err := stagingTx(tx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].TransactionID == e.TransactionID {
			return domain.ErrDuplicateTransactionID
		}
	}
	if _, held := r.reserved[e.TransactionID]; held {
		return domain.ErrDuplicateTransactionID
	}
	r.reserved[e.TransactionID] = struct{}{}
	r.nextSeq++
	e.Seq = r.nextSeq
	mtx.entries = append(mtx.entries, *e)
	return nil
}

func (r *inMemoryLedgerRepo) apply(staged []domain.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range staged {
		delete(r.reserved, e.TransactionID)
		r.entries = append(r.entries, e)
	}
}

func (r *inMemoryLedgerRepo) release(staged []domain.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range staged {
		delete(r.reserved, e.TransactionID)
	}
}

func (r *inMemoryLedgerRepo) Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, e := range r.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Seq > result[j].Seq
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryLedgerRepo) BalanceOf(ctx context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var balance int64
	for _, e := range r.entries {
		if e.AccountID == accountID {
			balance += e.SignedAmount()
		}
	}
	return balance, nil
}

func (r *inMemoryLedgerRepo) BalanceOfTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	mtx, err := stagingTx(tx)
	if err != nil {
		return 0, err
	}
	balance, err := r.BalanceOf(ctx, accountID)
	if err != nil {
		return 0, err
	}
	for _, e := range mtx.entries {
		if e.AccountID == accountID {
			balance += e.SignedAmount()
		}
	}
	return balance, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu       sync.RWMutex
	records  map[string]*domain.IdempotencyRecord
	reserved map[string]struct{} // keys staged by open transactions
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{
		records:  make(map[string]*domain.IdempotencyRecord),
		reserved: make(map[string]struct{}),
	}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	mtx, err := stagingTx(tx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.Key]; ok {
		return domain.ErrDuplicateIdempotencyKey
	}
	if _, held := r.reserved[rec.Key]; held {
		return domain.ErrDuplicateIdempotencyKey
	}
	r.reserved[rec.Key] = struct{}{}
	mtx.records = append(mtx.records, *rec)
	return nil
}

func (r *inMemoryIdempotencyRepo) apply(staged []domain.IdempotencyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range staged {
		delete(r.reserved, rec.Key)
		cp := rec
		r.records[rec.Key] = &cp
	}
}

func (r *inMemoryIdempotencyRepo) release(staged []domain.IdempotencyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range staged {
		delete(r.reserved, rec.Key)
	}
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct {
	ledger *inMemoryLedgerRepo
	idemp  *inMemoryIdempotencyRepo
}

func newInMemoryTransactor(ledger *inMemoryLedgerRepo, idemp *inMemoryIdempotencyRepo) *inMemoryTransactor {
	return &inMemoryTransactor{ledger: ledger, idemp: idemp}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &stagedTx{ledger: t.ledger, idemp: t.idemp}, nil
}

// stagedTx buffers writes and applies them to the repos only on Commit.
// Rollback drops the buffer and releases any uniqueness reservations, so
// a caller that appends an entry and then fails keeps nothing, matching
// the atomicity a real database transaction gives the deposit path.
type stagedTx struct {
	pgx.Tx
	ledger  *inMemoryLedgerRepo
	idemp   *inMemoryIdempotencyRepo
	entries []domain.LedgerEntry
	records []domain.IdempotencyRecord
	closed  bool
}

func (t *stagedTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.ledger.apply(t.entries)
	t.idemp.apply(t.records)
	return nil
}

func (t *stagedTx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.ledger.release(t.entries)
	t.idemp.release(t.records)
	return nil
}

func stagingTx(tx pgx.Tx) (*stagedTx, error) {
	mtx, ok := tx.(*stagedTx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}
	return mtx, nil
}
