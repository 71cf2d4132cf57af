package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20 // 1 MB

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already-encoded JSON payload.
func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
}

// writeError maps err to a status code and writes the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func classify(err error) (int, errorBody) {
	var (
		verr *model.ValidationError
		terr *model.TransientError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Message: verr.Error(), Type: "validation_error", Field: verr.Field}
	case errors.As(err, &terr):
		return http.StatusServiceUnavailable, errorBody{Message: terr.Error(), Type: "transient_error"}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: err.Error(), Type: "not_found"}
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, errorBody{Message: err.Error(), Type: "conflict"}
	}
	return http.StatusInternalServerError, errorBody{Message: err.Error(), Type: "error"}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return model.Invalid("body", "%v", err)
	}
	return nil
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.Invalid(name, "not an integer: %q", raw)
	}
	return n, nil
}

// decimalQuery parses an optional non-negative amount query parameter.
func decimalQuery(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, model.Invalid(name, "not an amount: %q", raw)
	}
	return &d, nil
}
