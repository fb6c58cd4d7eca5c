package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"saldo/internal/core"
	applog "saldo/internal/log"
)

var (
	errTooManyRequests = errors.New("rate limit exceeded, try again later")
	errRouteNotFound   = errors.New("route not found")
)

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// listBody wraps collection responses. Stale marks balances served from the
// stored cache.
type listBody[T any] struct {
	Items []T  `json:"items"`
	Count int  `json:"count"`
	Stale bool `json:"stale,omitempty"`
}

func newList[T any](items []T, stale bool) listBody[T] {
	if items == nil {
		items = []T{}
	}
	return listBody[T]{Items: items, Count: len(items), Stale: stale}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps the error kinds surfaced by the services onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, errRouteNotFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Internal failures are logged and
// hidden from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), RequestID: w.Header().Get("X-Request-ID")}

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body.Error = verr.Error()
		body.Field = verr.Field
	}

	switch status {
	case http.StatusInternalServerError:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
		body.Error = "internal error"
	case http.StatusServiceUnavailable:
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Store unavailable", applog.FieldError, err)
		body.Error = "store unavailable, try again later"
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, status, body)
}
