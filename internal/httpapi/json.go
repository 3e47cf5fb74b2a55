package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"pet-feeding/internal/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("json encode failed")
	}
}

func writeData(w http.ResponseWriter, log logrus.FieldLogger, status int, data any) {
	writeJSON(w, log, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, status int, msg string) {
	writeJSON(w, log, status, envelope{Error: msg})
}

// writeAppError maps service errors to a status and a message safe to show.
func writeAppError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, log, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, log, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrDuplicateFeeding):
		writeError(w, log, http.StatusConflict, "cat was fed moments ago")
	default:
		writeError(w, log, http.StatusInternalServerError, "internal error")
	}
}
