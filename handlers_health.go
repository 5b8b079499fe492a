package main

import (
	"encoding/json"
	"net/http"
	"time"

	"slotwatch/poll"
)

func handleHealth(monitor *poll.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body := map[string]string{"status": "healthy"}
		if last := monitor.LastCycleAt(); !last.IsZero() {
			body["last_cycle"] = last.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}
