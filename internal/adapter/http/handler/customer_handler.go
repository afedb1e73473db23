package handler

import (
	"time"

	"github.com/sergiomarchado/minicorebank/internal/adapter/http/dto"
	"github.com/sergiomarchado/minicorebank/internal/core/domain"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"
	"github.com/sergiomarchado/minicorebank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	customerSvc ports.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerSvc ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerSvc: customerSvc}
}

// Create handles POST /api/v1/customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	customer, err := h.customerSvc.Create(c.Request.Context(), ports.CreateCustomerRequest{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toCustomerResponse(customer))
}

// Get handles GET /api/v1/customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer id"))
		return
	}

	customer, err := h.customerSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toCustomerResponse(customer))
}

func toCustomerResponse(c *domain.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:        c.ID.String(),
		FullName:  c.FullName,
		Email:     c.Email,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
