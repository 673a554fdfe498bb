package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/middleware/security"
	"moneta/internal/middleware/trace"
	"moneta/internal/services"
)

// Sweeper runs the materialization job.
type Sweeper interface {
	ProcessDue(ctx context.Context, now time.Time) (services.ProcessResult, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RuleManager is the write side for recurring rules.
type RuleManager interface {
	List(ctx context.Context, userID string) ([]core.RecurringRule, error)
	Create(ctx context.Context, p core.RuleParams) (core.RecurringRule, error)
	Update(ctx context.Context, id string, p core.RuleParams) (core.RecurringRule, error)
	Delete(ctx context.Context, userID, id string) error
}

// Ledger is the write side for ledger entries and categories.
type Ledger interface {
	Record(ctx context.Context, p core.EntryParams) (core.LedgerEntry, error)
	RecordBulk(ctx context.Context, userID string, params []core.EntryParams) ([]core.LedgerEntry, error)
	Get(ctx context.Context, userID, id string) (core.LedgerEntry, error)
	Update(ctx context.Context, id string, p core.EntryParams) (core.LedgerEntry, error)
	List(ctx context.Context, userID string, month core.YearMonth) ([]core.LedgerEntry, error)
	Delete(ctx context.Context, userID, id string) error
	Categories(ctx context.Context, userID string) ([]core.Category, error)
	AddCategory(ctx context.Context, userID, name, color string) (core.Category, error)
}

var (
	_ Sweeper     = (*services.RecurringProcessor)(nil)
	_ RuleManager = (*services.RuleService)(nil)
	_ Ledger      = (*services.LedgerService)(nil)
)

// Dependencies are the collaborators served over HTTP.
type Dependencies struct {
	Dashboard services.Dashboard
	Rules     RuleManager
	Ledger    Ledger
	Sweeper   Sweeper
	Store     Pinger
	// Ring is optional; without it /admin/logs returns an empty list.
	Ring *log.Ring
}

// Options configure the listener and guards.
type Options struct {
	Addr       string
	CronSecret string
	// TrustedProxies are CIDRs, beyond private ranges, whose forwarded
	// headers are honoured.
	TrustedProxies []string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	deps   Dependencies
	secret string
	now    func() time.Time
	tracer *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Dependencies) (*Server, error) {
	ips := security.NewIPExtractor()
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		deps:   deps,
		secret: opts.CronSecret,
		now:    now,
		tracer: trace.NewMiddleware(ips.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /dashboard/summary/{year}/{month}", s.user(s.handleSummary))
	mux.Handle("POST /dashboard/category-breakdown", s.user(s.handleBreakdown))
	mux.Handle("GET /dashboard/forecast/{year}/{month}", s.user(s.handleForecast))

	mux.Handle("GET /recurring-transactions", s.user(s.handleListRules))
	mux.Handle("POST /recurring-transactions", s.user(s.handleCreateRule))
	mux.Handle("PUT /recurring-transactions/{id}", s.user(s.handleUpdateRule))
	mux.Handle("DELETE /recurring-transactions/{id}", s.user(s.handleDeleteRule))

	mux.Handle("GET /transactions", s.user(s.handleListEntries))
	mux.Handle("POST /transactions", s.user(s.handleCreateEntry))
	mux.Handle("POST /transactions/bulk", s.user(s.handleCreateEntries))
	mux.Handle("GET /transactions/{id}", s.user(s.handleGetEntry))
	mux.Handle("PUT /transactions/{id}", s.user(s.handleUpdateEntry))
	mux.Handle("DELETE /transactions/{id}", s.user(s.handleDeleteEntry))

	mux.Handle("GET /categories", s.user(s.handleListCategories))
	mux.Handle("POST /categories", s.user(s.handleCreateCategory))

	mux.Handle("POST /jobs/trigger", s.guarded(s.handleTriggerJob))
	mux.Handle("GET /admin/logs", s.guarded(s.handleLogs))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) user(h http.HandlerFunc) http.Handler {
	return security.RequireUser(unauthorized, h)
}

func (s *Server) guarded(h http.HandlerFunc) http.Handler {
	return security.RequireSecret(s.secret, unauthorized, h)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// userID is only called behind RequireUser.
func userID(r *http.Request) string {
	id, _ := security.UserFromContext(r.Context())
	return id
}
