package postgres

import (
	"context"
	"fmt"

	"github.com/sergiomarchado/minicorebank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The ledger is append-only:
// this type deliberately has no update or delete methods.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends an entry within a database transaction. The seq column
// is assigned by the database and carries insertion order.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, account_id, transaction_id, direction, amount_minor, currency, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		e.ID, e.AccountID, e.TransactionID, e.Direction, e.AmountMinor, e.Currency, e.Description, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		if isUniqueViolation(err, constraintTransactionID) {
			return domain.ErrDuplicateTransactionID
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Recent fetches the newest entries for an account, created_at descending
// with ties broken by insertion order.
func (r *LedgerRepo) Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT id, account_id, transaction_id, direction, amount_minor, currency, description, created_at, seq
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.TransactionID, &e.Direction,
			&e.AmountMinor, &e.Currency, &e.Description, &e.CreatedAt, &e.Seq,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// BalanceOf folds every entry of the account into a signed sum. The
// balance is always derived here, never read from a stored total.
func (r *LedgerRepo) BalanceOf(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(CASE direction WHEN 'CREDIT' THEN amount_minor ELSE -amount_minor END), 0)
		FROM ledger_entries WHERE account_id = $1`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return balance, nil
}

// BalanceOfTx computes the same fold through an open transaction, so it
// sees entries appended in that transaction before they commit.
func (r *LedgerRepo) BalanceOfTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(CASE direction WHEN 'CREDIT' THEN amount_minor ELSE -amount_minor END), 0)
		FROM ledger_entries WHERE account_id = $1`

	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return balance, nil
}
