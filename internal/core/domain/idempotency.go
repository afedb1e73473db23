package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord maps a caller-supplied idempotency key 1:1 to the
// transaction id minted for it, together with the serialized response to
// return on replay. The record is written in the same database transaction
// as the ledger entry, so a key exists iff its deposit was applied.
type IdempotencyRecord struct {
	Key           string    `json:"key"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildDepositKey scopes an idempotency key to its account, so distinct
// accounts can reuse the same caller key without colliding.
func BuildDepositKey(accountID uuid.UUID, key string) string {
	return accountID.String() + ":deposit:" + key
}
