package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gestor/internal/auth"
	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/services"
	"gestor/internal/sheets"
	"gestor/internal/sheets/memory"
	"gestor/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	backend sheets.TableStore
}

func newTestEnv(t *testing.T, backend sheets.TableStore) *testEnv {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	gw := store.NewGateway(backend, nil, logger)
	stores := store.NewStores(gw, time.Minute, nil)
	s := NewServer(Options{
		Ledger:             services.NewLedgerService(stores, logger),
		Auth:               auth.NewService(stores.Credentials, auth.Master{Username: "admin", Password: "11"}, logger),
		Tokens:             auth.NewTokens("0123456789abcdef0123", time.Hour),
		Backend:            gw,
		Logger:             logger,
		LoginRatePerMinute: 6,
	})
	return &testEnv{server: s, handler: s.Handler, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.RemoteAddr = "203.0.113.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, user, pass string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": user, "password": pass})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func today() string {
	return core.DateOf(time.Now()).String()
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupLoginAndAuthRequired(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rec := env.do(t, http.MethodGet, "/api/entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = env.do(t, http.MethodGet, "/api/entries", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "ana", "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)
	signup := decodeBody[loginResponse](t, rec)
	assert.Equal(t, "ana", signup.Tenant)
	assert.NotEmpty(t, signup.Token)

	rec = env.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "ana", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "ana", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decodeBody[errorResponse](t, rec).Fields["password"])

	token := env.login(t, "ana", "pw")
	rec = env.do(t, http.MethodGet, "/api/entries", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestLoginIsRateLimited(t *testing.T) {
	env := newTestEnv(t, memory.New())
	body := map[string]string{"username": "nobody", "password": "x"}
	for i := 0; i < 6; i++ {
		rec := env.do(t, http.MethodPost, "/api/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestEntryLifecycle(t *testing.T) {
	env := newTestEnv(t, memory.New())
	token := env.login(t, "admin", "11")

	rec := env.do(t, http.MethodPost, "/api/entries", token, map[string]any{
		"id":           "NF1",
		"due_date":     today(),
		"environment":  "company",
		"flow":         "outflow",
		"description":  "Peças",
		"category":     "Peças Elevador",
		"amount":       "R$ 1.234,56",
		"status":       "pending",
		"installments": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[[]core.Entry](t, rec)
	require.Len(t, created, 2)
	assert.Equal(t, "NF1-1", created[0].ID)
	assert.Equal(t, "1234.56", created[1].Amount.String())
	assert.Equal(t, core.NoClient, created[0].Client)
	assert.Equal(t, "admin", created[0].Tenant)

	rec = env.do(t, http.MethodGet, "/api/entries?all=true&q=pe%C3%A7as", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]core.Entry](t, rec), 2)

	rec = env.do(t, http.MethodPatch, "/api/entries/NF1-1", token, map[string]any{"status": "completed", "amount": 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeBody[affectedResponse](t, rec).Affected)

	rec = env.do(t, http.MethodPatch, "/api/entries/missing", token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeBody[affectedResponse](t, rec).Affected)

	rec = env.do(t, http.MethodPatch, "/api/entries/NF1-1", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/entries/NF1-2", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/entries/delete", token, map[string]any{"ids": []string{"NF1-1", "nope"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[affectedResponse](t, rec).Affected)

	rec = env.do(t, http.MethodGet, "/api/entries?all=1", token, nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateEntryValidation(t *testing.T) {
	env := newTestEnv(t, memory.New())
	token := env.login(t, "admin", "11")

	base := map[string]any{
		"due_date":    today(),
		"environment": "Empresa",
		"flow":        "Entrada (Recebimento)",
		"amount":      100,
		"status":      "Pendente",
	}
	with := func(k string, v any) map[string]any {
		m := map[string]any{}
		for key, val := range base {
			m[key] = val
		}
		m[k] = v
		return m
	}

	cases := map[string]map[string]any{
		"bad environment":  with("environment", "Moon"),
		"bad flow":         with("flow", "sideways"),
		"bad status":       with("status", "maybe"),
		"missing due date": with("due_date", nil),
		"zero installment": with("installments", -1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/entries", token, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPost, "/api/entries", token, base)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSubmitDuplicateIDConflicts(t *testing.T) {
	env := newTestEnv(t, memory.New())
	token := env.login(t, "admin", "11")
	body := map[string]any{
		"id": "NF7", "due_date": today(), "environment": "company", "flow": "inflow", "amount": 5, "status": "pending",
	}
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/entries", token, body).Code)

	rec := env.do(t, http.MethodPost, "/api/entries", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/entries?all=1", token, nil)
	assert.Len(t, decodeBody[[]core.Entry](t, rec), 1)
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t, memory.New())
	env.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "a", "password": "1"})
	env.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "b", "password": "2"})
	ta := env.login(t, "a", "1")
	tb := env.login(t, "b", "2")

	rec := env.do(t, http.MethodPost, "/api/entries", ta, map[string]any{
		"id": "X", "due_date": today(), "environment": "pf", "flow": "inflow", "amount": 5, "status": "pending",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/entries?all=1", tb, nil)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/entries/X", tb, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeBody[affectedResponse](t, rec).Affected)

	rec = env.do(t, http.MethodGet, "/api/entries?all=1", ta, nil)
	assert.Len(t, decodeBody[[]core.Entry](t, rec), 1)
}

func TestCardsClientsAndCatalog(t *testing.T) {
	env := newTestEnv(t, memory.New())
	token := env.login(t, "admin", "11")

	rec := env.do(t, http.MethodPost, "/api/cards", token, map[string]any{"name": "Visa", "limit": "1.000,00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/cards", token, map[string]any{"name": "visa", "limit": 10})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cards", token, map[string]any{"name": "Master", "limit": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cards", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decodeBody[[]map[string]any](t, rec)
	require.Len(t, cards, 1)
	assert.Equal(t, "Visa", cards[0]["card"])

	rec = env.do(t, http.MethodPost, "/api/clients", token, map[string]string{"name": "ACME"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients", token, nil)
	assert.Equal(t, []string{core.NoClient, "ACME"}, decodeBody[[]string](t, rec))

	rec = env.do(t, http.MethodGet, "/api/categories", token, nil)
	catalog := decodeBody[catalogResponse](t, rec)
	assert.Equal(t, core.DefaultCategories, catalog.Categories)
	assert.Contains(t, catalog.PaymentMethods, "Visa")
	assert.Contains(t, catalog.PaymentMethods, "Pix")

	rec = env.do(t, http.MethodDelete, "/api/clients/ACME", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/cards/Nope", token, nil)
	assert.Equal(t, 0, decodeBody[affectedResponse](t, rec).Affected)
}

func TestSummaryAndSync(t *testing.T) {
	env := newTestEnv(t, memory.New())
	token := env.login(t, "admin", "11")

	for _, body := range []map[string]any{
		{"id": "1", "due_date": today(), "environment": "company", "flow": "inflow", "amount": 300, "status": "completed"},
		{"id": "2", "due_date": today(), "environment": "company", "flow": "outflow", "amount": 100, "status": "pending"},
		{"id": "3", "due_date": today(), "environment": "company", "flow": "outflow", "amount": 999, "status": "rejected"},
	} {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/entries", token, body).Code)
	}

	rec := env.do(t, http.MethodGet, "/api/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum struct {
		Balances      map[string]json.Number `json:"balances"`
		ActiveEntries int                    `json:"active_entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.True(t, decimal.RequireFromString(sum.Balances[string(core.Company)].String()).Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 2, sum.ActiveEntries)

	rec = env.do(t, http.MethodPost, "/api/sync", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingBackend struct{ *memory.Store }

func (failingBackend) WriteTable(context.Context, string, []string, [][]string) error {
	return errors.New("quota exceeded")
}

func (failingBackend) Ping(context.Context) error { return errors.New("down") }

func TestPersistFailureIs500(t *testing.T) {
	env := newTestEnv(t, failingBackend{memory.New()})
	token := env.login(t, "admin", "11")

	rec := env.do(t, http.MethodPost, "/api/clients", token, map[string]string{"name": "ACME"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "could not save data, try again", decodeBody[errorResponse](t, rec).Error)

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusConflict, statusFor(services.ErrDuplicateClient))
	assert.Equal(t, http.StatusUnauthorized, statusFor(auth.ErrInvalidToken))
	assert.Equal(t, http.StatusBadRequest, statusFor(core.ErrZeroDate))
}
