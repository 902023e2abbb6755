package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// StateHandler serves the current room snapshot as JSON.
func StateHandler(logger logrus.FieldLogger, room Room) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st, err := room.Snapshot(r.Context())
		if err != nil {
			logger.WithError(err).Warn("snapshot unavailable")
			http.Error(w, "game room unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, st, logger)
	}
}
