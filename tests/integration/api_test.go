package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	httpHandler "github.com/sergiomarchado/minicorebank/internal/adapter/http/handler"
	redisStorage "github.com/sergiomarchado/minicorebank/internal/adapter/storage/redis"
	"github.com/sergiomarchado/minicorebank/internal/service"
	"github.com/sergiomarchado/minicorebank/pkg/iban"
	"github.com/sergiomarchado/minicorebank/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds a full application stack: real HTTP layer, middleware,
// handlers and services, with in-memory repos and miniredis behind them.

type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	replayCache := redisStorage.NewReplayCache(rdb)

	customerRepo := newInMemoryCustomerRepo()
	accountRepo := newInMemoryAccountRepo()
	ledgerRepo := newInMemoryLedgerRepo()
	idempotencyRepo := newInMemoryIdempotencyRepo()
	transactor := newInMemoryTransactor(ledgerRepo, idempotencyRepo)

	log := logger.New("debug", false)
	customerSvc := service.NewCustomerService(customerRepo, log)
	accountSvc := service.NewAccountService(accountRepo, customerRepo, iban.NewGenerator(), log)
	ledgerSvc := service.NewLedgerService(ledgerRepo, accountRepo, idempotencyRepo, replayCache, transactor, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CustomerSvc: customerSvc,
		AccountSvc:  accountSvc,
		LedgerSvc:   ledgerSvc,
		Logger:      log,
	})

	server := httptest.NewServer(router)

	return &testApp{server: server, redis: mr}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func (a *testApp) post(t *testing.T, path string, body any, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (a *testApp) createCustomer(t *testing.T, name, email string) string {
	t.Helper()
	resp, body := a.post(t, "/api/v1/customers", map[string]string{"full_name": name, "email": email}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]interface{})["id"].(string)
}

func (a *testApp) openAccount(t *testing.T, customerID, currency string) map[string]interface{} {
	t.Helper()
	resp, body := a.post(t, "/api/v1/accounts", map[string]string{"customer_id": customerID, "currency": currency}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]interface{})
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, body := app.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

// TestIntegration_AccountLifecycle walks the canonical scenario: register a
// customer, open a EUR account, deposit twice, and read back balance and
// history.
func TestIntegration_AccountLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	customerID := app.createCustomer(t, "Ada Lovelace", "ada@example.com")

	account := app.openAccount(t, customerID, "EUR")
	accountID := account["id"].(string)
	assert.Equal(t, "ACTIVE", account["status"])
	assert.Equal(t, "EUR", account["currency"])

	// Spanish IBAN: 24 chars and mod-97 valid.
	code := account["iban"].(string)
	assert.Len(t, code, 24)
	assert.True(t, iban.Valid(code))
	assert.Equal(t, "ES", code[:2])

	// Fresh account holds zero.
	resp, body := app.get(t, "/api/v1/accounts/"+accountID+"/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["balance_minor"])

	// First deposit.
	resp, body = app.post(t, "/api/v1/accounts/"+accountID+"/deposit",
		map[string]interface{}{"amount_minor": 1000, "description": "Ingreso inicial"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1000), body["data"].(map[string]interface{})["balance_minor"])

	// Second deposit.
	resp, body = app.post(t, "/api/v1/accounts/"+accountID+"/deposit",
		map[string]interface{}{"amount_minor": 500, "description": "Transferencia"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1500), body["data"].(map[string]interface{})["balance_minor"])

	// History: newest first.
	resp, body = app.get(t, "/api/v1/accounts/"+accountID+"/entries")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := body["data"].([]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, float64(500), entries[0].(map[string]interface{})["amount_minor"])
	assert.Equal(t, float64(1000), entries[1].(map[string]interface{})["amount_minor"])
}

func TestIntegration_DuplicateEmailRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.createCustomer(t, "Ada Lovelace", "ada@example.com")

	resp, body := app.post(t, "/api/v1/customers",
		map[string]string{"full_name": "Someone Else", "email": "ADA@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CUST_002", body["error_code"])
}

func TestIntegration_OpenAccount_UnknownCustomer(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, body := app.post(t, "/api/v1/accounts",
		map[string]string{"customer_id": "3f0c8a39-21d0-4a97-9e3b-000000000000", "currency": "EUR"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CUST_001", body["error_code"])
}

func TestIntegration_DepositIdempotency(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	customerID := app.createCustomer(t, "Ada Lovelace", "ada@example.com")
	accountID := app.openAccount(t, customerID, "EUR")["id"].(string)

	headers := map[string]string{"Idempotency-Key": "dep-001"}
	deposit := map[string]interface{}{"amount_minor": 1000, "description": "Ingreso inicial"}

	resp, body := app.post(t, "/api/v1/accounts/"+accountID+"/deposit", deposit, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := body["data"].(map[string]interface{})
	assert.Equal(t, false, first["replayed"])

	// Same key: the prior response replays, nothing is posted again.
	resp, body = app.post(t, "/api/v1/accounts/"+accountID+"/deposit", deposit, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := body["data"].(map[string]interface{})
	assert.Equal(t, true, second["replayed"])
	assert.Equal(t, first["transaction_id"], second["transaction_id"])
	assert.Equal(t, first["balance_minor"], second["balance_minor"])

	resp, body = app.get(t, "/api/v1/accounts/"+accountID+"/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1000), body["data"].(map[string]interface{})["balance_minor"])

	resp, body = app.get(t, "/api/v1/accounts/"+accountID+"/entries")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)
}

func TestIntegration_StatusMachine(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	customerID := app.createCustomer(t, "Ada Lovelace", "ada@example.com")
	accountID := app.openAccount(t, customerID, "EUR")["id"].(string)

	// Block, then deposits are rejected.
	resp, body := app.post(t, "/api/v1/accounts/"+accountID+"/block", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "BLOCKED", body["data"].(map[string]interface{})["status"])

	resp, body = app.post(t, "/api/v1/accounts/"+accountID+"/deposit",
		map[string]interface{}{"amount_minor": 100}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ACC_003", body["error_code"])

	// Unblock restores posting.
	resp, _ = app.post(t, "/api/v1/accounts/"+accountID+"/unblock", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/accounts/"+accountID+"/deposit",
		map[string]interface{}{"amount_minor": 100}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Close is terminal.
	resp, _ = app.post(t, "/api/v1/accounts/"+accountID+"/close", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = app.post(t, "/api/v1/accounts/"+accountID+"/deposit",
		map[string]interface{}{"amount_minor": 100}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ACC_004", body["error_code"])

	resp, body = app.post(t, "/api/v1/accounts/"+accountID+"/unblock", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ACC_006", body["error_code"])
}

func TestIntegration_ValidateIBANEndpoint(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, body := app.get(t, "/api/v1/iban/validate?iban=ES9121000418450200051332")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]interface{})["valid"])

	resp, body = app.get(t, "/api/v1/iban/validate?iban=ES0021000418450200051332")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]interface{})["valid"])
}
