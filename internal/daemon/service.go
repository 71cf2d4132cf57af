// Package daemon provides the long-running autopilot service: it serves the
// API, sweeps every ledger on an interval to prepare and execute payment
// orders, and streams payment events to subscribers.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/paycheck/internal/metrics"
	"github.com/theirongolddev/paycheck/internal/payments"
	"github.com/theirongolddev/paycheck/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	CacheTTL     time.Duration
	DefaultUser  string
}

// SweepSummary totals one sweep across all users.
type SweepSummary struct {
	At         time.Time `json:"at"`
	Users      int       `json:"users"`
	Prepared   int       `json:"prepared"`
	Dispatched int       `json:"dispatched"`
	Failed     int       `json:"failed"`
}

func (s SweepSummary) isZero() bool {
	return s.Prepared == 0 && s.Dispatched == 0 && s.Failed == 0
}

// Event types.
const (
	EventPayment = "payment"
	EventSweep   = "sweep"
)

// Event is one entry of the event ring and the SSE stream.
type Event struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payment   *payments.Event `json:"payment,omitempty"`
	Sweep     *SweepSummary   `json:"sweep,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt        time.Time    `json:"started_at"`
	LastSweepAt      time.Time    `json:"last_sweep_at"`
	SweepIntervalSec int          `json:"sweep_interval_sec"`
	SweepCount       int64        `json:"sweep_count"`
	LastSweep        SweepSummary `json:"last_sweep"`
	Provider         string       `json:"provider,omitempty"`
	LastError        string       `json:"last_error,omitempty"`
	EventCount       int          `json:"event_count"`
	SubscriberCount  int          `json:"subscriber_count"`
}

// Service provides the daemon runtime.
type Service struct {
	cfg   Config
	store *store.Store
	log   zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastSweepAt time.Time
	sweepCount  int64
	lastSweep   SweepSummary
	lastError   string
	provider    string
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, st *store.Store, log zerolog.Logger) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.DefaultUser == "" {
		cfg.DefaultUser = "default"
	}

	return &Service{
		cfg:       cfg,
		store:     st,
		log:       log.With().Str("component", "daemon").Logger(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Mount adds the daemon endpoints to r.
func (s *Service) Mount(r chi.Router) {
	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/events", s.handleEvents)
	r.Get("/v1/stream", s.handleStream)
}

// PublishPayment records a payment transition. It is the payments
// service's Publish hook and is safe to call from worker goroutines.
func (s *Service) PublishPayment(e payments.Event) {
	s.mu.Lock()
	s.nextEventID++
	ev := Event{ID: s.nextEventID, Type: EventPayment, Timestamp: e.At, Payment: &e}
	s.mu.Unlock()
	s.publishEvent(ev)
}

// Run serves handler (with the daemon endpoints mounted) and sweeps on
// the configured interval until ctx is canceled. Queued payments are
// drained before Run returns.
func (s *Service) Run(ctx context.Context, pay *payments.Service, router chi.Router) error {
	s.Mount(router)
	s.mu.Lock()
	s.provider = pay.ProviderName()
	s.mu.Unlock()

	// Workers outlive ctx so Stop can drain what is already queued.
	if err := pay.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting payment workers: %w", err)
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Dur("interval", s.cfg.Interval).Msg("daemon started")

	// Sweep at startup so due payments are not held for a full interval.
	s.sweepOnce(ctx, pay)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := server.Shutdown(shutdownCtx)
			if stopErr := pay.Stop(shutdownCtx); stopErr != nil {
				s.log.Warn().Err(stopErr).Msg("payment queue did not drain")
			}
			s.log.Info().Msg("daemon stopped")
			return err
		case <-ticker.C:
			s.sweepOnce(ctx, pay)
		case err := <-errCh:
			_ = pay.Stop(context.Background())
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// users lists every ledger to sweep, always including the default user.
func (s *Service) users(ctx context.Context) ([]string, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u == s.cfg.DefaultUser {
			return users, nil
		}
	}
	return append(users, s.cfg.DefaultUser), nil
}

func (s *Service) sweepOnce(ctx context.Context, pay *payments.Service) {
	now := time.Now()
	summary := SweepSummary{At: now}

	users, err := s.users(ctx)
	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("listing users: %w", err))
	}
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		res, err := pay.Sweep(ctx, u)
		summary.Users++
		summary.Prepared += res.Prepared
		summary.Dispatched += res.Dispatched
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("user %s: %w", u, err))
		}
	}

	if s.cfg.CacheTTL > 0 {
		if n, err := s.store.PruneSummaries(ctx, s.cfg.CacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("pruning summary cache")
		} else if n > 0 {
			s.log.Debug().Int64("rows", n).Msg("pruned summary cache")
		}
	}

	sweepErr := errors.Join(errs...)
	outcome := "ok"
	if sweepErr != nil {
		outcome = "error"
		s.log.Error().Err(sweepErr).Msg("sweep failed")
	} else {
		s.log.Debug().Int("users", summary.Users).Int("prepared", summary.Prepared).
			Int("dispatched", summary.Dispatched).Msg("sweep complete")
	}
	metrics.SweepRuns.WithLabelValues(outcome).Inc()

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	first := s.sweepCount == 0
	s.lastSweep = summary
	s.lastSweepAt = now
	s.sweepCount++
	s.lastError = ""
	if sweepErr != nil {
		s.lastError = sweepErr.Error()
	}
	if first || !summary.isZero() {
		s.nextEventID++
		sw := summary
		ev = Event{ID: s.nextEventID, Type: EventSweep, Timestamp: now, Sweep: &sw}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:        s.startedAt,
		LastSweepAt:      s.lastSweepAt,
		SweepIntervalSec: int(s.cfg.Interval.Seconds()),
		SweepCount:       s.sweepCount,
		LastSweep:        s.lastSweep,
		Provider:         s.provider,
		LastError:        s.lastError,
		EventCount:       len(s.events),
		SubscriberCount:  len(s.subs),
	}
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send the latest sweep immediately.
	last := s.snapshotStatus().LastSweep
	writeSSE(w, Event{Type: EventSweep, Timestamp: time.Now(), Sweep: &last})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	metrics.StreamSubscribers.Inc()
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	metrics.StreamSubscribers.Dec()
}
