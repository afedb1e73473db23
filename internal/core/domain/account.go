package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency is an ISO-4217 code. Accounts are single-currency: the code is
// fixed at creation and every ledger entry must match it.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// ParseCurrency validates a currency code against the supported set.
func ParseCurrency(s string) (Currency, bool) {
	switch Currency(s) {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP:
		return Currency(s), true
	}
	return "", false
}

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusBlocked AccountStatus = "BLOCKED"
	AccountStatusClosed  AccountStatus = "CLOSED"
)

// Account is a customer-owned bank account identified by a unique IBAN.
// It carries no balance field: the balance is always derived from the
// account's ledger entries, never stored.
type Account struct {
	ID         uuid.UUID     `json:"id"`
	CustomerID uuid.UUID     `json:"customer_id"`
	IBAN       string        `json:"iban"`
	Currency   Currency      `json:"currency"`
	Status     AccountStatus `json:"status"`
	Version    int           `json:"version"` // optimistic concurrency control on the account row
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewAccount builds an ACTIVE account at version 0.
func NewAccount(customerID uuid.UUID, iban string, currency Currency) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:         uuid.New(),
		CustomerID: customerID,
		IBAN:       iban,
		Currency:   currency,
		Status:     AccountStatusActive,
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsPostable returns true if new ledger entries may be appended.
// ACTIVE is the only postable state.
func (a *Account) IsPostable() bool {
	return a.Status == AccountStatusActive
}

// CanTransition reports whether the status change is legal:
// ACTIVE <-> BLOCKED is reversible and administrative; ACTIVE -> CLOSED is
// terminal. A closed account never transitions again.
func (a *Account) CanTransition(to AccountStatus) bool {
	switch a.Status {
	case AccountStatusActive:
		return to == AccountStatusBlocked || to == AccountStatusClosed
	case AccountStatusBlocked:
		return to == AccountStatusActive
	case AccountStatusClosed:
		return false
	}
	return false
}
