package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faxioman/sofa/pkg/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errName, reason string) {
	writeJSON(w, status, ErrorResponse{Error: errName, Reason: reason})
}

// respondError maps the error taxonomy onto protocol statuses. Batch
// endpoints never reach this for per-item failures; those are converted to
// per-item markers upstream.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "missing")
	case errors.Is(err, model.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, model.ErrNotImplemented):
		writeError(w, http.StatusNotImplemented, "not_implemented", err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	}
}
