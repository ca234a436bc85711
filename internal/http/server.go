// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/middleware/ratelimit"
	"gestor/internal/middleware/security"
	"gestor/internal/middleware/trace"
	"gestor/internal/services"

	"github.com/go-playground/validator/v10"
)

// Ledger is the tenant-scoped ledger API used by the handlers.
type Ledger interface {
	Submit(ctx context.Context, tenant string, sub services.Submission) ([]core.Entry, error)
	UpdateEntry(ctx context.Context, tenant, id string, patch services.EntryPatch) (int, error)
	DeleteEntries(ctx context.Context, tenant string, ids []string) (int, error)
	Search(ctx context.Context, tenant string, q ledger.Query) ([]core.Entry, error)
	Summary(ctx context.Context, tenant string) (services.Summary, error)
	AddCard(ctx context.Context, tenant, name string, limit core.Amount) (core.Card, error)
	DeleteCard(ctx context.Context, tenant, name string) (int, error)
	Cards(ctx context.Context, tenant string) ([]ledger.Utilization, error)
	AddClient(ctx context.Context, tenant, name string) (core.Client, error)
	DeleteClient(ctx context.Context, tenant, name string) (int, error)
	Clients(ctx context.Context, tenant string) ([]string, error)
	PaymentMethods(ctx context.Context, tenant string) ([]string, error)
	Refresh(ctx context.Context)
}

// Accounts registers and verifies credentials.
type Accounts interface {
	Register(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) error
}

// Tokens issues and parses session tokens that carry the tenant id.
type Tokens interface {
	Issue(tenant string) (string, error)
	Parse(token string) (string, error)
}

// Pinger reports backend health for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Addr   string
	Ledger Ledger
	Auth   Accounts
	Tokens Tokens
	// Backend is probed by /readyz; nil means always ready.
	Backend Pinger
	Logger  *log.Logger
	// LoginRatePerMinute limits login and signup attempts per client IP.
	LoginRatePerMinute int
}

type Server struct {
	http.Server
	ledger   Ledger
	auth     Accounts
	tokens   Tokens
	backend  Pinger
	logger   *log.Logger
	validate *validator.Validate
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	started  time.Time
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		ledger:   opts.Ledger,
		auth:     opts.Auth,
		tokens:   opts.Tokens,
		backend:  opts.Backend,
		logger:   logger.WithComponent(log.ComponentHTTP),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRatePerMinute}),
		tracer:   trace.NewMiddleware(),
		started:  time.Now(),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	throttled := s.limiter.Middleware(trace.ClientIP, s.onRateLimit)
	mux.Handle("POST /api/signup", throttled(http.HandlerFunc(s.handleSignup)))
	mux.Handle("POST /api/login", throttled(http.HandlerFunc(s.handleLogin)))

	authed := func(h http.HandlerFunc) http.Handler { return s.requireTenant(h) }
	mux.Handle("GET /api/entries", authed(s.handleSearchEntries))
	mux.Handle("POST /api/entries", authed(s.handleCreateEntries))
	mux.Handle("POST /api/entries/delete", authed(s.handleDeleteEntries))
	mux.Handle("PATCH /api/entries/{id}", authed(s.handleUpdateEntry))
	mux.Handle("DELETE /api/entries/{id}", authed(s.handleDeleteEntry))
	mux.Handle("GET /api/summary", authed(s.handleSummary))
	mux.Handle("GET /api/cards", authed(s.handleListCards))
	mux.Handle("POST /api/cards", authed(s.handleCreateCard))
	mux.Handle("DELETE /api/cards/{name}", authed(s.handleDeleteCard))
	mux.Handle("GET /api/clients", authed(s.handleListClients))
	mux.Handle("POST /api/clients", authed(s.handleCreateClient))
	mux.Handle("DELETE /api/clients/{name}", authed(s.handleDeleteClient))
	mux.Handle("GET /api/categories", authed(s.handleCategories))
	mux.Handle("POST /api/sync", authed(s.handleSync))

	var h http.Handler = mux
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(s.logger, trace.RequestID, trace.ClientIP)(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down",
		log.FieldOperation, log.OpShutdown,
		"requests_served", s.tracer.TotalRequests(),
		"logins_throttled", s.limiter.Rejected())
	return s.Server.Shutdown(ctx)
}
