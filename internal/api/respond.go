package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"task-manager/internal/service"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a bounded JSON body into v and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// fail maps a service error onto a status code and JSON body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		status := http.StatusUnprocessableEntity
		if ve.Reference {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: ve.Error(), Details: ve.Problems})
	case errors.Is(err, service.ErrAuth):
		writeError(w, http.StatusUnauthorized, publicMessage(err, service.ErrAuth))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, publicMessage(err, service.ErrNotFound))
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, publicMessage(err, service.ErrConflict))
	default:
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// publicMessage strips the trailing sentinel text added by %w wrapping.
func publicMessage(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}
