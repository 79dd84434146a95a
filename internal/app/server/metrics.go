package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeMetrics(w http.ResponseWriter, snapshot map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		slog.Warn("metrics encode failed", "err", err)
	}
}
