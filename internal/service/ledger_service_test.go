package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/internal/core/ports/mocks"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc         *LedgerServiceImpl
	ledgerRepo  *mocks.MockLedgerRepository
	accountRepo *mocks.MockAccountRepository
	idempRepo   *mocks.MockIdempotencyRepository
	replayCache *mocks.MockReplayCache
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		ledgerRepo:  mocks.NewMockLedgerRepository(ctrl),
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		idempRepo:   mocks.NewMockIdempotencyRepository(ctrl),
		replayCache: mocks.NewMockReplayCache(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewLedgerService(
		d.ledgerRepo, d.accountRepo, d.idempRepo,
		d.replayCache, d.transactor, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func activeAccount(id uuid.UUID) *domain.Account {
	return &domain.Account{
		ID:       id,
		IBAN:     "ES9121000418450200051332",
		Currency: domain.CurrencyEUR,
		Status:   domain.AccountStatusActive,
	}
}

// ==================== Post ====================

func TestLedgerService_Post_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	txnID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			assert.Equal(t, txnID, e.TransactionID)
			assert.Equal(t, domain.DirectionDebit, e.Direction)
			return nil
		})

	entry, err := d.svc.Post(ctx, ports.PostEntryRequest{
		AccountID:     accountID,
		TransactionID: txnID,
		Direction:     "DEBIT",
		AmountMinor:   250,
		Currency:      "EUR",
		Description:   "card purchase",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250), entry.AmountMinor)
	assert.Equal(t, int64(-250), entry.SignedAmount())
}

func TestLedgerService_Post_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	for _, amount := range []int64{0, -1, -500} {
		_, err := d.svc.Post(context.Background(), ports.PostEntryRequest{
			AccountID:   uuid.New(),
			Direction:   "CREDIT",
			AmountMinor: amount,
			Currency:    "EUR",
		})
		require.Error(t, err)

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "LED_001", appErr.Code)
	}
}

func TestLedgerService_Post_CurrencyMismatch(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)

	_, err := d.svc.Post(ctx, ports.PostEntryRequest{
		AccountID:   accountID,
		Direction:   "CREDIT",
		AmountMinor: 100,
		Currency:    "USD",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
}

func TestLedgerService_Post_BlockedAccount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	acc := activeAccount(accountID)
	acc.Status = domain.AccountStatusBlocked
	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(acc, nil)

	_, err := d.svc.Post(ctx, ports.PostEntryRequest{
		AccountID:   accountID,
		Direction:   "CREDIT",
		AmountMinor: 100,
		Currency:    "EUR",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACC_003", appErr.Code)
}

func TestLedgerService_Post_ClosedAccount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	acc := activeAccount(accountID)
	acc.Status = domain.AccountStatusClosed
	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(acc, nil)

	_, err := d.svc.Post(ctx, ports.PostEntryRequest{
		AccountID:   accountID,
		Direction:   "DEBIT",
		AmountMinor: 100,
		Currency:    "EUR",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACC_004", appErr.Code)
}

func TestLedgerService_Post_DuplicateTransactionID(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(domain.ErrDuplicateTransactionID)

	_, err := d.svc.Post(ctx, ports.PostEntryRequest{
		AccountID:     accountID,
		TransactionID: uuid.New(),
		Direction:     "CREDIT",
		AmountMinor:   100,
		Currency:      "EUR",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)
}

// ==================== Deposit ====================

func TestLedgerService_Deposit_NoKey_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			assert.Equal(t, domain.DirectionCredit, e.Direction)
			assert.Equal(t, int64(1000), e.AmountMinor)
			assert.Equal(t, "Ingreso inicial", e.Description)
			return nil
		})
	d.ledgerRepo.EXPECT().BalanceOfTx(ctx, tx, accountID).Return(int64(1500), nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		AccountID:   accountID,
		AmountMinor: 1000,
		Description: "Ingreso inicial",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.BalanceMinor)
	assert.False(t, result.Replayed)
	assert.NotEqual(t, uuid.Nil, result.TransactionID)
}

func TestLedgerService_Deposit_WithKey_FirstRun(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	idempKey := domain.BuildDepositKey(accountID, "key-1")

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.replayCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().BalanceOfTx(ctx, tx, accountID).Return(int64(1000), nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, rec *domain.IdempotencyRecord) error {
			assert.Equal(t, idempKey, rec.Key)
			assert.NotEmpty(t, rec.ResponseJSON)
			return nil
		})
	d.replayCache.EXPECT().Set(ctx, idempKey, gomock.Any(), replayTTL).Return(nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		AccountID:      accountID,
		IdempotencyKey: "key-1",
		AmountMinor:    1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.BalanceMinor)
	assert.False(t, result.Replayed)
}

func TestLedgerService_Deposit_ReplayFromCache(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	idempKey := domain.BuildDepositKey(accountID, "key-1")

	cached := ports.DepositResult{
		TransactionID: uuid.New(),
		AccountID:     accountID,
		AmountMinor:   1000,
		Currency:      "EUR",
		BalanceMinor:  1000,
	}
	cachedJSON, err := json.Marshal(cached)
	require.NoError(t, err)

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.replayCache.EXPECT().Get(ctx, idempKey).Return(cachedJSON, nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		AccountID:      accountID,
		IdempotencyKey: "key-1",
		AmountMinor:    1000,
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, cached.TransactionID, result.TransactionID)
	assert.Equal(t, int64(1000), result.BalanceMinor)
}

func TestLedgerService_Deposit_ReplayFromTableWhenCacheDown(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	idempKey := domain.BuildDepositKey(accountID, "key-1")

	stored := ports.DepositResult{TransactionID: uuid.New(), AccountID: accountID, AmountMinor: 1000, BalanceMinor: 1000}
	storedJSON, err := json.Marshal(stored)
	require.NoError(t, err)

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.replayCache.EXPECT().Get(ctx, idempKey).Return(nil, assert.AnError)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(&domain.IdempotencyRecord{
		Key:           idempKey,
		TransactionID: stored.TransactionID,
		ResponseJSON:  storedJSON,
	}, nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		AccountID:      accountID,
		IdempotencyKey: "key-1",
		AmountMinor:    1000,
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, stored.TransactionID, result.TransactionID)
}

func TestLedgerService_Deposit_KeyRace_ReplaysWinner(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	idempKey := domain.BuildDepositKey(accountID, "key-1")

	winner := ports.DepositResult{TransactionID: uuid.New(), AccountID: accountID, AmountMinor: 1000, BalanceMinor: 1000}
	winnerJSON, err := json.Marshal(winner)
	require.NoError(t, err)

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.replayCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().BalanceOfTx(ctx, tx, accountID).Return(int64(1000), nil)
	// Another request committed the key between our check and our insert.
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(domain.ErrDuplicateIdempotencyKey)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(&domain.IdempotencyRecord{
		Key:           idempKey,
		TransactionID: winner.TransactionID,
		ResponseJSON:  winnerJSON,
	}, nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		AccountID:      accountID,
		IdempotencyKey: "key-1",
		AmountMinor:    1000,
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, winner.TransactionID, result.TransactionID)
}

func TestLedgerService_Deposit_KeyRace_WinnerNotCommitted(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	idempKey := domain.BuildDepositKey(accountID, "key-1")

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(activeAccount(accountID), nil)
	d.replayCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.ledgerRepo.EXPECT().BalanceOfTx(ctx, tx, accountID).Return(int64(1000), nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(domain.ErrDuplicateIdempotencyKey)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)

	_, err := d.svc.Deposit(ctx, ports.DepositRequest{
		AccountID:      accountID,
		IdempotencyKey: "key-1",
		AmountMinor:    1000,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_004", appErr.Code)
}

func TestLedgerService_Deposit_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Deposit(context.Background(), ports.DepositRequest{
		AccountID:   uuid.New(),
		AmountMinor: 0,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)
}

func TestLedgerService_Deposit_BlockedAccount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	acc := activeAccount(accountID)
	acc.Status = domain.AccountStatusBlocked
	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(acc, nil)

	_, err := d.svc.Deposit(ctx, ports.DepositRequest{AccountID: accountID, AmountMinor: 100})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACC_003", appErr.Code)
}

// ==================== Balance & Recent ====================

func TestLedgerService_Balance_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	d.accountRepo.EXPECT().Exists(ctx, accountID).Return(true, nil)
	d.ledgerRepo.EXPECT().BalanceOf(ctx, accountID).Return(int64(1500), nil)

	balance, err := d.svc.Balance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance)
}

func TestLedgerService_Balance_AccountNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	d.accountRepo.EXPECT().Exists(ctx, accountID).Return(false, nil)

	_, err := d.svc.Balance(ctx, accountID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACC_001", appErr.Code)
}

func TestLedgerService_Recent_ClampsSize(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	cases := []struct {
		requested int
		effective int
	}{
		{requested: 0, effective: 1},
		{requested: -7, effective: 1},
		{requested: 10, effective: 10},
		{requested: 500, effective: 50},
	}
	for _, tc := range cases {
		d.accountRepo.EXPECT().Exists(ctx, accountID).Return(true, nil)
		d.ledgerRepo.EXPECT().Recent(ctx, accountID, tc.effective).Return([]domain.LedgerEntry{}, nil)

		_, err := d.svc.Recent(ctx, accountID, tc.requested)
		require.NoError(t, err)
	}
}

func TestLedgerService_Recent_AccountNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	d.accountRepo.EXPECT().Exists(ctx, accountID).Return(false, nil)

	_, err := d.svc.Recent(ctx, accountID, 10)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACC_001", appErr.Code)
}
