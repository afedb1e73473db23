package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer represents a registered bank customer.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"` // stored lower-cased, unique across all customers
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail canonicalizes an email address for storage and lookups.
// Uniqueness is case-insensitive, so "Ada@example.com" and "ada@example.com"
// are the same customer.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewCustomer builds a customer with a fresh id and normalized fields.
func NewCustomer(fullName, email string) *Customer {
	now := time.Now().UTC()
	return &Customer{
		ID:        uuid.New(),
		FullName:  strings.TrimSpace(fullName),
		Email:     NormalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
