package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/shelf/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string        `json:"error" validate:"required"`
	Detail *apperr.Error `json:"detail,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps an engine error to an HTTP status.
func statusOf(err error) int {
	ae, ok := apperr.As(err)
	switch {
	case !ok:
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case ae.Action == apperr.ActionNoRootPath:
		return http.StatusServiceUnavailable
	case ae.Kind == apperr.KindNotFound:
		return http.StatusNotFound
	case ae.Kind == apperr.KindMalformed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Structured errors are returned to the client as
// they are; anything else is logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status := statusOf(err)
	ae, ok := apperr.As(err)
	if !ok {
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	if status >= http.StatusInternalServerError {
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	}
	writeJSON(w, status, errResponse{Error: ae.Title, Detail: ae})
}
