package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const replayTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	ledgerRepo  ports.LedgerRepository
	accountRepo ports.AccountRepository
	idempRepo   ports.IdempotencyRepository
	replayCache ports.ReplayCache
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	ledgerRepo ports.LedgerRepository,
	accountRepo ports.AccountRepository,
	idempRepo ports.IdempotencyRepository,
	replayCache ports.ReplayCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		idempRepo:   idempRepo,
		replayCache: replayCache,
		transactor:  transactor,
		log:         log,
	}
}

// Post appends a single entry to the ledger. The transaction_id uniqueness
// constraint is the arbiter under races: two postings with the same id
// resolve to exactly one append, the other gets DuplicateTransaction.
func (s *LedgerServiceImpl) Post(ctx context.Context, req ports.PostEntryRequest) (*domain.LedgerEntry, error) {
	if req.AmountMinor <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	direction, ok := domain.ParseDirection(req.Direction)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown direction %q", req.Direction))
	}
	currency, ok := domain.ParseCurrency(req.Currency)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported currency %q", req.Currency))
	}

	account, err := s.postableAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Currency != currency {
		return nil, apperror.ErrCurrencyMismatch()
	}

	txnID := req.TransactionID
	if txnID == uuid.Nil {
		txnID = uuid.New()
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     account.ID,
		TransactionID: txnID,
		Direction:     direction,
		AmountMinor:   req.AmountMinor,
		Currency:      currency,
		Description:   req.Description,
		CreatedAt:     time.Now().UTC(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransactionID) {
			return nil, apperror.ErrDuplicateTransaction()
		}
		return nil, apperror.InternalError(fmt.Errorf("create entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("account_id", account.ID.String()).
		Str("direction", string(direction)).
		Int64("amount_minor", req.AmountMinor).
		Msg("ledger entry posted")

	return entry, nil
}

// Deposit credits an account. With an idempotency key the operation is
// replay-safe: a repeat of the same key returns the stored first response
// instead of posting again.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*ports.DepositResult, error) {
	if req.AmountMinor <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	account, err := s.postableAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.Currency != "" && string(account.Currency) != req.Currency {
		return nil, apperror.ErrCurrencyMismatch()
	}

	if req.IdempotencyKey == "" {
		return s.deposit(ctx, account, req, "")
	}

	idempKey := domain.BuildDepositKey(req.AccountID, req.IdempotencyKey)

	// Layer 1: Redis replay check
	cached, err := s.replayCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis replay check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalReplay(cached)
	}

	// Layer 2: DB replay check
	rec, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db replay check: %w", err))
	}
	if rec != nil {
		return s.unmarshalReplay(rec.ResponseJSON)
	}

	return s.deposit(ctx, account, req, idempKey)
}

// deposit performs the first-run credit. When idempKey is non-empty the
// idempotency record is written in the same database transaction as the
// entry, so replay and append commit or fail together.
func (s *LedgerServiceImpl) deposit(ctx context.Context, account *domain.Account, req ports.DepositRequest, idempKey string) (*ports.DepositResult, error) {
	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     account.ID,
		TransactionID: uuid.New(),
		Direction:     domain.DirectionCredit,
		AmountMinor:   req.AmountMinor,
		Currency:      account.Currency,
		Description:   req.Description,
		CreatedAt:     now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransactionID) {
			return nil, apperror.ErrDuplicateTransaction()
		}
		return nil, apperror.InternalError(fmt.Errorf("create entry: %w", err))
	}

	// Summed inside the transaction, so the stored response carries the
	// post-deposit balance as this transaction will commit it.
	balance, err := s.ledgerRepo.BalanceOfTx(ctx, dbTx, account.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("balance: %w", err))
	}

	result := &ports.DepositResult{
		TransactionID: entry.TransactionID,
		AccountID:     account.ID,
		AmountMinor:   req.AmountMinor,
		Currency:      string(account.Currency),
		BalanceMinor:  balance,
	}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}

	if idempKey != "" {
		rec := &domain.IdempotencyRecord{
			Key:           idempKey,
			TransactionID: entry.TransactionID,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, rec); err != nil {
			if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
				// Lost the race for this key. The winner's response is
				// durable once it commits; replay it, or report the
				// in-flight conflict if it has not landed yet.
				return s.replayAfterRace(ctx, idempKey)
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency record: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		if err := s.replayCache.Set(ctx, idempKey, respJSON, replayTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache deposit response in redis")
		}
	}

	s.log.Info().
		Str("tx_id", entry.TransactionID.String()).
		Str("account_id", account.ID.String()).
		Int64("amount_minor", req.AmountMinor).
		Int64("balance_minor", result.BalanceMinor).
		Msg("deposit applied")

	return result, nil
}

// Balance returns the signed fold over every entry of the account.
// It is always derived from the ledger, never read from a stored total.
func (s *LedgerServiceImpl) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	exists, err := s.accountRepo.Exists(ctx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("check account: %w", err))
	}
	if !exists {
		return 0, apperror.ErrAccountNotFound()
	}
	balance, err := s.ledgerRepo.BalanceOf(ctx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("balance: %w", err))
	}
	return balance, nil
}

// Recent returns the newest entries for the account. An out-of-range size
// is clamped, never rejected.
func (s *LedgerServiceImpl) Recent(ctx context.Context, accountID uuid.UUID, size int) ([]domain.LedgerEntry, error) {
	exists, err := s.accountRepo.Exists(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check account: %w", err))
	}
	if !exists {
		return nil, apperror.ErrAccountNotFound()
	}
	entries, err := s.ledgerRepo.Recent(ctx, accountID, domain.RecentEntriesLimit(size))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("recent entries: %w", err))
	}
	return entries, nil
}

// postableAccount loads the account and rejects statuses that forbid
// postings with distinct error kinds.
func (s *LedgerServiceImpl) postableAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	switch account.Status {
	case domain.AccountStatusBlocked:
		return nil, apperror.ErrAccountBlocked()
	case domain.AccountStatusClosed:
		return nil, apperror.ErrAccountClosed()
	}
	return account, nil
}

func (s *LedgerServiceImpl) replayAfterRace(ctx context.Context, idempKey string) (*ports.DepositResult, error) {
	rec, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("replay after race: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrIdempotencyInProgress()
	}
	return s.unmarshalReplay(rec.ResponseJSON)
}

func (s *LedgerServiceImpl) unmarshalReplay(data []byte) (*ports.DepositResult, error) {
	var result ports.DepositResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal replay: %w", err))
	}
	result.Replayed = true
	return &result, nil
}
