package api

import (
	"context"
	"net/http"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// resource binds one ledger entity's store operations to REST routes.
type resource[T any] struct {
	list   func(ctx context.Context, userID string) ([]T, error)
	get    func(ctx context.Context, userID, id string) (T, error)
	create func(ctx context.Context, userID string, v T) (T, error)
	update func(ctx context.Context, userID string, v T) (T, error)
	delete func(ctx context.Context, userID, id string) error
	setID  func(v *T, id string)
	extra  func(r chi.Router)
}

func mountResource[T any](r chi.Router, s *Server, path string, res resource[T]) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			items, err := res.list(r.Context(), s.userID(r))
			if err != nil {
				writeError(w, err)
				return
			}
			if items == nil {
				items = []T{}
			}
			writeJSON(w, http.StatusOK, items)
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var v T
			if err := decodeJSON(r, &v, false); err != nil {
				writeError(w, err)
				return
			}
			out, err := res.create(r.Context(), s.userID(r), v)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, out)
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			out, err := res.get(r.Context(), s.userID(r), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var v T
			if err := decodeJSON(r, &v, false); err != nil {
				writeError(w, err)
				return
			}
			res.setID(&v, chi.URLParam(r, "id"))
			out, err := res.update(r.Context(), s.userID(r), v)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := res.delete(r.Context(), s.userID(r), chi.URLParam(r, "id")); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		if res.extra != nil {
			res.extra(r)
		}
	})
}

type contributeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type contributeResponse struct {
	Goal model.Goal    `json:"goal"`
	Log  model.GoalLog `json:"log"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	g, entry, err := s.store.Contribute(r.Context(), s.userID(r), chi.URLParam(r, "id"), req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contributeResponse{Goal: g, Log: entry})
}

func (s *Server) handleGoalLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.GoalLogs(r.Context(), s.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []model.GoalLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		writeError(w, err)
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	notes, err := s.store.ListNotifications(r.Context(), s.userID(r), unread, max(1, min(limit, 200)))
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkNotificationRead(r.Context(), s.userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
