package api

import (
	"net/http"
	"strings"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/go-chi/chi/v5"
)

type approveRequest struct {
	ExecuteNow *bool `json:"execute_now"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	status := model.PaymentStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	orders, err := s.payments.List(r.Context(), s.userID(r), status, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	o, err := s.store.GetPaymentOrder(r.Context(), s.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days_ahead", s.opts.PrepareDays)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.payments.Prepare(r.Context(), s.userID(r), days)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if len(res.Created) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// handleApprove returns 202: execution may still be running on the worker
// pool when the response is written.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	executeNow := req.ExecuteNow == nil || *req.ExecuteNow

	o, err := s.payments.Approve(r.Context(), s.userID(r), chi.URLParam(r, "id"), executeNow)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, o)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	o, err := s.payments.Cancel(r.Context(), s.userID(r), chi.URLParam(r, "id"), strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleExecuteDue(w http.ResponseWriter, r *http.Request) {
	n, err := s.payments.ExecuteDue(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"dispatched": n})
}
