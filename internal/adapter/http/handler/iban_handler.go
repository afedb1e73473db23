package handler

import (
	"github.com/sergiomarchado/minicorebank/internal/adapter/http/dto"
	"github.com/sergiomarchado/minicorebank/pkg/apperror"
	"github.com/sergiomarchado/minicorebank/pkg/iban"
	"github.com/sergiomarchado/minicorebank/pkg/response"

	"github.com/gin-gonic/gin"
)

// ValidateIBAN handles GET /api/v1/iban/validate?iban=...
// A malformed IBAN is a negative validation result, not an error.
func ValidateIBAN(c *gin.Context) {
	raw := c.Query("iban")
	if raw == "" {
		response.Error(c, apperror.Validation("iban query parameter is required"))
		return
	}

	response.OK(c, dto.IbanValidationResponse{
		IBAN:  raw,
		Valid: iban.Valid(raw),
	})
}
