package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/sergiomarchado/minicorebank/internal/adapter/http/dto"
	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"
	"github.com/sergiomarchado/minicorebank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey carries the caller's deposit idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const defaultEntriesPageSize = 50

// AccountHandler handles account and ledger endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
	ledgerSvc  ports.LedgerService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService, ledgerSvc ports.LedgerService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc, ledgerSvc: ledgerSvc}
}

// Open handles POST /api/v1/accounts.
func (h *AccountHandler) Open(c *gin.Context) {
	var req dto.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer id"))
		return
	}

	account, err := h.accountSvc.Open(c.Request.Context(), ports.OpenAccountRequest{
		CustomerID: customerID,
		Currency:   req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toAccountResponse(account))
}

// Get handles GET /api/v1/accounts/:id.
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(account))
}

// Deposit handles POST /api/v1/accounts/:id/deposit.
func (h *AccountHandler) Deposit(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		AccountID:      id,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		Description:    req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositResponse{
		TransactionID: result.TransactionID.String(),
		AccountID:     result.AccountID.String(),
		AmountMinor:   result.AmountMinor,
		Currency:      result.Currency,
		BalanceMinor:  result.BalanceMinor,
		Replayed:      result.Replayed,
	})
}

// Post handles POST /api/v1/accounts/:id/entries.
func (h *AccountHandler) Post(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var txnID uuid.UUID
	if req.TransactionID != "" {
		var err error
		if txnID, err = uuid.Parse(req.TransactionID); err != nil {
			response.Error(c, apperror.Validation("invalid transaction id"))
			return
		}
	}

	entry, err := h.ledgerSvc.Post(c.Request.Context(), ports.PostEntryRequest{
		AccountID:     id,
		TransactionID: txnID,
		Direction:     req.Direction,
		AmountMinor:   req.AmountMinor,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

// Balance handles GET /api/v1/accounts/:id/balance.
func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.Balance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID:    id.String(),
		BalanceMinor: balance,
	})
}

// Entries handles GET /api/v1/accounts/:id/entries?size=N.
func (h *AccountHandler) Entries(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	size := defaultEntriesPageSize
	if raw := c.Query("size"); raw != "" {
		// Non-numeric sizes fall back to the default; out-of-range
		// values are clamped downstream.
		if n, err := strconv.Atoi(raw); err == nil {
			size = n
		}
	}

	entries, err := h.ledgerSvc.Recent(c.Request.Context(), id, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}
	response.OK(c, out)
}

// Block handles POST /api/v1/accounts/:id/block.
func (h *AccountHandler) Block(c *gin.Context) {
	h.statusChange(c, h.accountSvc.Block)
}

// Unblock handles POST /api/v1/accounts/:id/unblock.
func (h *AccountHandler) Unblock(c *gin.Context) {
	h.statusChange(c, h.accountSvc.Unblock)
}

// Close handles POST /api/v1/accounts/:id/close.
func (h *AccountHandler) Close(c *gin.Context) {
	h.statusChange(c, h.accountSvc.Close)
}

func (h *AccountHandler) statusChange(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*domain.Account, error)) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	account, err := op(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAccountResponse(account))
}

func accountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid account id"))
		return uuid.Nil, false
	}
	return id, true
}

func toAccountResponse(a *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:         a.ID.String(),
		CustomerID: a.CustomerID.String(),
		IBAN:       a.IBAN,
		Currency:   string(a.Currency),
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryResponse(e *domain.LedgerEntry) dto.EntryResponse {
	return dto.EntryResponse{
		ID:            e.ID.String(),
		AccountID:     e.AccountID.String(),
		TransactionID: e.TransactionID.String(),
		Direction:     string(e.Direction),
		AmountMinor:   e.AmountMinor,
		Currency:      string(e.Currency),
		Description:   e.Description,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
}
