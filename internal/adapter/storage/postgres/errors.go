package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names declared in the migrations. The repositories translate
// violations of these into domain sentinel errors, so the constraints are
// the single arbiter under concurrent writes.
const (
	constraintCustomerEmail  = "customers_email_lower_idx"
	constraintAccountIBAN    = "accounts_iban_key"
	constraintTransactionID  = "ledger_entries_transaction_id_key"
	constraintIdempotencyKey = "idempotency_keys_pkey"
)

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique violation
// on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolationCode &&
		pgErr.ConstraintName == constraint
}
