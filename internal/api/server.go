// Package api serves the paycheck JSON API: dashboard and autopilot views
// computed from a ledger snapshot, payment order actions, and CRUD over
// the ledger entities.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/metrics"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/payments"
	"github.com/theirongolddev/paycheck/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Prefix is the mount point of the versioned API.
const Prefix = "/api/v1"

// UserHeader selects the ledger a request reads and writes.
const UserHeader = "X-User-ID"

// Options configures a Server.
type Options struct {
	Settings       engine.Settings
	DefaultUser    string
	PrepareDays    int
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	Metrics        bool
	Now            func() time.Time
}

// OptionsFromConfig builds server options from a loaded config.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	settings, err := engine.SettingsFromConfig(cfg)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Settings:       settings,
		DefaultUser:    cfg.General.UserID,
		PrepareDays:    cfg.Payments.PrepareDays,
		CacheTTL:       cfg.Server.CacheTTL.Duration,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
		Metrics:        cfg.Server.Metrics,
	}, nil
}

// Server holds the handler dependencies.
type Server struct {
	store    *store.Store
	payments *payments.Service
	opts     Options
	log      zerolog.Logger
}

// NewServer creates an API server.
func NewServer(st *store.Store, pay *payments.Service, opts Options, log zerolog.Logger) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "default"
	}
	return &Server{store: st, payments: pay, opts: opts, log: log}
}

// Router builds the HTTP router. Callers may mount additional routes on it.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route(Prefix, func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
		}

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/triage", s.handleTriage)
		})

		r.Route("/autopilot", func(r chi.Router) {
			r.Get("/safe-to-spend-daily", s.handleSafeToSpend)
			r.Get("/salary-split", s.handleSalarySplit)
			r.Get("/timeline", s.handleTimeline)

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", s.handleListPayments)
				r.Post("/prepare", s.handlePrepare)
				r.Post("/execute-due", s.handleExecuteDue)
				r.Get("/{id}", s.handleGetPayment)
				r.Post("/{id}/approve", s.handleApprove)
				r.Post("/{id}/cancel", s.handleCancel)
			})
		})

		mountResource(r, s, "/categories", resource[model.Category]{
			list: s.store.ListCategories, get: s.store.GetCategory,
			create: s.store.CreateCategory, update: s.store.UpdateCategory,
			delete: s.store.DeleteCategory, setID: func(c *model.Category, id string) { c.ID = id },
		})
		mountResource(r, s, "/transactions", resource[model.Transaction]{
			list: func(ctx context.Context, user string) ([]model.Transaction, error) {
				return s.store.ListTransactions(ctx, user, 0)
			},
			get: s.store.GetTransaction, create: s.store.CreateTransaction,
			update: s.store.UpdateTransaction, delete: s.store.DeleteTransaction,
			setID: func(t *model.Transaction, id string) { t.ID = id },
		})
		mountResource(r, s, "/bills", resource[model.Bill]{
			list: s.store.ListBills, get: s.store.GetBill,
			create: s.store.CreateBill, update: s.store.UpdateBill,
			delete: s.store.DeleteBill, setID: func(b *model.Bill, id string) { b.ID = id },
		})
		mountResource(r, s, "/subscriptions", resource[model.Subscription]{
			list: s.store.ListSubscriptions, get: s.store.GetSubscription,
			create: s.store.CreateSubscription, update: s.store.UpdateSubscription,
			delete: s.store.DeleteSubscription, setID: func(sub *model.Subscription, id string) { sub.ID = id },
		})
		mountResource(r, s, "/budgets/rules", resource[model.BudgetRule]{
			list: s.store.ListRules, get: s.store.GetRule,
			create: s.store.CreateRule, update: s.store.UpdateRule,
			delete: s.store.DeleteRule, setID: func(br *model.BudgetRule, id string) { br.ID = id },
		})
		mountResource(r, s, "/income-sources", resource[model.IncomeSource]{
			list: s.store.ListIncomeSources, get: s.store.GetIncomeSource,
			create: s.store.CreateIncomeSource, update: s.store.UpdateIncomeSource,
			delete: s.store.DeleteIncomeSource, setID: func(src *model.IncomeSource, id string) { src.ID = id },
		})
		mountResource(r, s, "/goals", resource[model.Goal]{
			list: s.store.ListGoals, get: s.store.GetGoal,
			create: s.store.CreateGoal, update: s.store.UpdateGoal,
			delete: s.store.DeleteGoal, setID: func(g *model.Goal, id string) { g.ID = id },
			extra: func(r chi.Router) {
				r.Post("/{id}/contribute", s.handleContribute)
				r.Get("/{id}/logs", s.handleGoalLogs)
			},
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleNotifications)
			r.Post("/{id}/read", s.handleMarkRead)
		})
	})

	return r
}

// userID resolves the ledger owner of a request.
func (s *Server) userID(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(UserHeader)); u != "" {
		return u
	}
	return s.opts.DefaultUser
}

// requestLogger logs each request and records route metrics. A request
// scoped logger is attached to the context for handlers.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		ev := reqLog.Debug()
		if status >= http.StatusInternalServerError {
			ev = reqLog.Warn()
		}
		ev.Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
