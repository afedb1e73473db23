package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryDirection represents the sign of a ledger entry.
type EntryDirection string

const (
	DirectionCredit EntryDirection = "CREDIT" // increases the balance
	DirectionDebit  EntryDirection = "DEBIT"  // decreases the balance
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (EntryDirection, bool) {
	switch EntryDirection(s) {
	case DirectionCredit, DirectionDebit:
		return EntryDirection(s), true
	}
	return "", false
}

// LedgerEntry is an immutable, append-only monetary fact posted against one
// account. Amounts are always positive integers in the currency's smallest
// unit; the sign comes only from Direction. The sequence of entries for an
// account is the sole source of truth for its balance.
type LedgerEntry struct {
	ID            uuid.UUID      `json:"id"`
	AccountID     uuid.UUID      `json:"account_id"`
	TransactionID uuid.UUID      `json:"transaction_id"` // unique across the whole ledger
	Direction     EntryDirection `json:"direction"`
	AmountMinor   int64          `json:"amount_minor"`
	Currency      Currency       `json:"currency"` // must equal the account currency at posting time
	Description   string         `json:"description,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Seq           int64          `json:"-"` // insertion order, breaks created_at ties in recent()
}

// SignedAmount returns the entry's contribution to the account balance:
// +AmountMinor for CREDIT, -AmountMinor for DEBIT.
func (e *LedgerEntry) SignedAmount() int64 {
	if e.Direction == DirectionDebit {
		return -e.AmountMinor
	}
	return e.AmountMinor
}

// RecentEntriesLimit clamps a requested page size to [1, 50]. Out-of-range
// values are clamped, not rejected.
func RecentEntriesLimit(size int) int {
	if size < 1 {
		return 1
	}
	if size > 50 {
		return 50
	}
	return size
}
