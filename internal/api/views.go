package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/metrics"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"
)

// Summary cache kinds.
const (
	viewSummary   = "summary"
	viewTriage    = "triage"
	viewSafe      = "safe_to_spend"
	viewSplit     = "salary_split"
	viewTimeline  = "timeline"
	cacheHeader   = "X-Cache"
	defaultPast   = 7
	defaultFuture = 30
)

// serveView answers a read-only view. Results are cached per user, kind and
// params, and invalidated by any ledger write through the version tag. The
// date is part of the key because every view depends on today.
func (s *Server) serveView(w http.ResponseWriter, r *http.Request, kind, params string, compute func(*pipeline.Ledger) (any, error)) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	user := s.userID(r)
	now := s.opts.Now()
	key := model.DateOf(now).String() + "|" + params

	if s.opts.CacheTTL > 0 {
		payload, ok, err := s.store.CachedSummary(ctx, user, kind, key, s.opts.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Str("view", kind).Msg("summary cache read failed")
		}
		if ok {
			metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
			w.Header().Set(cacheHeader, "hit")
			writeRaw(w, http.StatusOK, payload)
			return
		}
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
		w.Header().Set(cacheHeader, "miss")
	}

	snap, err := s.store.ReadSnapshot(ctx, user)
	if err != nil {
		metrics.SnapshotErrors.Inc()
		log.Error().Err(err).Str("view", kind).Msg("snapshot read failed")
		writeError(w, err)
		return
	}

	v, err := compute(pipeline.NewLedger(snap, now))
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.Computations.WithLabelValues(kind).Inc()

	payload, err := json.Marshal(v)
	if err != nil {
		writeError(w, fmt.Errorf("encoding %s: %w", kind, err))
		return
	}
	if s.opts.CacheTTL > 0 {
		if err := s.store.PutSummary(ctx, user, kind, key, snap.Version, payload); err != nil {
			log.Warn().Err(err).Str("view", kind).Msg("summary cache write failed")
		}
	}
	writeRaw(w, http.StatusOK, payload)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	chartRange := r.URL.Query().Get("chart_range")
	switch chartRange {
	case "":
		chartRange = engine.ChartWeek
	case engine.ChartWeek, engine.ChartMonth:
	default:
		writeError(w, model.Invalid("chart_range", "must be %q or %q", engine.ChartWeek, engine.ChartMonth))
		return
	}
	s.serveView(w, r, viewSummary, chartRange, func(l *pipeline.Ledger) (any, error) {
		return engine.Summarize(l, s.opts.Settings, chartRange)
	})
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, viewTriage, "", func(l *pipeline.Ledger) (any, error) {
		return engine.Triage(l, s.opts.Settings)
	})
}

func (s *Server) handleSafeToSpend(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, viewSafe, "", func(l *pipeline.Ledger) (any, error) {
		return engine.SafeToSpend(l, s.opts.Settings)
	})
}

func (s *Server) handleSalarySplit(w http.ResponseWriter, r *http.Request) {
	override, err := decimalQuery(r, "salary_override")
	if err != nil {
		writeError(w, err)
		return
	}
	params := ""
	if override != nil {
		params = override.String()
	}
	s.serveView(w, r, viewSplit, params, func(l *pipeline.Ledger) (any, error) {
		return engine.SalarySplit(l, s.opts.Settings, override)
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	past, err := intQuery(r, "days_past", defaultPast)
	if err != nil {
		writeError(w, err)
		return
	}
	future, err := intQuery(r, "days_future", defaultFuture)
	if err != nil {
		writeError(w, err)
		return
	}
	past, future = engine.ClampWindow(past, future)
	s.serveView(w, r, viewTimeline, fmt.Sprintf("%d:%d", past, future), func(l *pipeline.Ledger) (any, error) {
		return engine.ProjectTimeline(l, s.opts.Settings, past, future)
	})
}
