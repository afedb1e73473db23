package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Customers (CUST) ----

func ErrCustomerNotFound() *AppError {
	return New("CUST_001", "Customer not found", http.StatusNotFound)
}

func ErrEmailInUse() *AppError {
	return New("CUST_002", "Email already registered", http.StatusConflict)
}

// ---- Accounts (ACC) ----

func ErrAccountNotFound() *AppError {
	return New("ACC_001", "Account not found", http.StatusNotFound)
}

func ErrIbanCollisionExhausted(err error) *AppError {
	return Wrap("ACC_002", "Could not allocate a unique IBAN", http.StatusConflict, err)
}

func ErrAccountBlocked() *AppError {
	return New("ACC_003", "Account is blocked", http.StatusUnprocessableEntity)
}

func ErrAccountClosed() *AppError {
	return New("ACC_004", "Account is closed", http.StatusUnprocessableEntity)
}

func ErrVersionConflict() *AppError {
	return New("ACC_005", "Account was modified concurrently", http.StatusConflict)
}

func ErrInvalidStatusTransition(from, to string) *AppError {
	return New("ACC_006", fmt.Sprintf("Cannot transition account from %s to %s", from, to), http.StatusUnprocessableEntity)
}

// ---- Ledger (LED) ----

func ErrInvalidAmount() *AppError {
	return New("LED_001", "Amount must be a positive number of minor units", http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("LED_002", "Entry currency does not match account currency", http.StatusUnprocessableEntity)
}

func ErrDuplicateTransaction() *AppError {
	return New("LED_003", "Transaction already applied", http.StatusConflict)
}

func ErrIdempotencyInProgress() *AppError {
	return New("LED_004", "A request with this idempotency key is still being processed", http.StatusConflict)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
