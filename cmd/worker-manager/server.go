package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"codavert-workers/internal/common/logger"
	"codavert-workers/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthCheck func(ctx context.Context) error

// newServer exposes liveness, readiness, Prometheus metrics and the activity
// catalogue the BPMN modeler reads.
func newServer(addr string, reg *registry.ActivityRegistry, checks map[string]healthCheck, log logger.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				log.Warn("Readiness check failed", map[string]interface{}{"check": name, "error": err})
				continue
			}
			results[name] = "ok"
		}

		body := map[string]interface{}{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		writeJSON(w, status, body)
	})

	mux.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
