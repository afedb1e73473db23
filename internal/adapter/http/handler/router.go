package handler

import (
	"github.com/sergiomarchado/minicorebank/internal/adapter/http/middleware"
	"github.com/sergiomarchado/minicorebank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CustomerSvc    ports.CustomerService
	AccountSvc     ports.AccountService
	LedgerSvc      ports.LedgerService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	customerHandler := NewCustomerHandler(deps.CustomerSvc)
	accountHandler := NewAccountHandler(deps.AccountSvc, deps.LedgerSvc)

	v1 := r.Group("/api/v1")

	customers := v1.Group("/customers")
	{
		customers.POST("", customerHandler.Create)
		customers.GET("/:id", customerHandler.Get)
	}

	accounts := v1.Group("/accounts")
	{
		accounts.POST("", accountHandler.Open)
		accounts.GET("/:id", accountHandler.Get)
		accounts.GET("/:id/balance", accountHandler.Balance)
		accounts.POST("/:id/deposit", accountHandler.Deposit)
		accounts.GET("/:id/entries", accountHandler.Entries)
		accounts.POST("/:id/entries", accountHandler.Post)
		accounts.POST("/:id/block", accountHandler.Block)
		accounts.POST("/:id/unblock", accountHandler.Unblock)
		accounts.POST("/:id/close", accountHandler.Close)
	}

	v1.GET("/iban/validate", ValidateIBAN)

	return r
}
