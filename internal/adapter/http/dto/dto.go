package dto

// CreateCustomerRequest is the request body for customer registration.
type CreateCustomerRequest struct {
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
}

// CustomerResponse is the response body for customer results.
type CustomerResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// OpenAccountRequest is the request body for opening an account.
type OpenAccountRequest struct {
	CustomerID string `json:"customer_id" binding:"required,uuid"`
	Currency   string `json:"currency" binding:"required,len=3"`
}

// AccountResponse is the response body for account results.
type AccountResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	IBAN       string `json:"iban"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// DepositRequest is the request body for a deposit.
type DepositRequest struct {
	AmountMinor int64  `json:"amount_minor" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	Description string `json:"description" binding:"max=200"`
}

// DepositResponse is the response body for a deposit.
type DepositResponse struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	BalanceMinor  int64  `json:"balance_minor"`
	Replayed      bool   `json:"replayed"`
}

// PostEntryRequest is the request body for a direct ledger posting.
type PostEntryRequest struct {
	TransactionID string `json:"transaction_id" binding:"omitempty,uuid"`
	Direction     string `json:"direction" binding:"required,oneof=CREDIT DEBIT"`
	AmountMinor   int64  `json:"amount_minor" binding:"required,gt=0"`
	Currency      string `json:"currency" binding:"required,len=3"`
	Description   string `json:"description" binding:"max=200"`
}

// EntryResponse is the response body for a ledger entry.
type EntryResponse struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	Direction     string `json:"direction"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	AccountID    string `json:"account_id"`
	BalanceMinor int64  `json:"balance_minor"`
}

// IbanValidationResponse is the response for IBAN validation.
type IbanValidationResponse struct {
	IBAN  string `json:"iban"`
	Valid bool   `json:"valid"`
}
