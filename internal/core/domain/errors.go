package domain

import "errors"

// Sentinel errors surfaced by storage adapters when a declared uniqueness
// constraint rejects a write. The store's constraint check at commit time is
// the arbiter under concurrent writers; a pre-check in the service layer is
// only an optimization, never the sole protection.
var (
	// ErrDuplicateEmail: a customer with this (case-insensitive) email exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateIBAN: the generated IBAN collided with an existing account.
	ErrDuplicateIBAN = errors.New("iban already exists")

	// ErrDuplicateTransactionID: an entry with this transaction id is already
	// in the ledger. The operation was already applied; do not retry.
	ErrDuplicateTransactionID = errors.New("transaction id already exists")

	// ErrDuplicateIdempotencyKey: another request holds this idempotency key.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

	// ErrVersionMismatch: an optimistic update observed a stale account version.
	ErrVersionMismatch = errors.New("account version mismatch")
)
