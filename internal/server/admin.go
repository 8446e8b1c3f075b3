// Package server exposes the daemon's admin HTTP API and gRPC health service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

// NewAdminRouter serves:
//
//	GET  /healthz     liveness
//	POST /scans       start a batch scan in the background
//	GET  /scans/last  summary of the last finished scan
func NewAdminRouter(baseCtx context.Context, scans *Scans, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "scan_running": scans.Running()})
	})

	r.Route("/scans", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			err := scans.Start(baseCtx)
			if errors.Is(err, ErrScanInProgress) {
				writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
				return
			}
			logger.Info("server.scan.triggered", "req_id", middleware.GetReqID(req.Context()))
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		})
		r.Get("/last", func(w http.ResponseWriter, _ *http.Request) {
			sum, err := scans.Last()
			if sum == nil && err == nil {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "no scan has finished yet"})
				return
			}
			body := map[string]any{"summary": sum}
			if err != nil {
				body["error"] = err.Error()
			}
			writeJSON(w, http.StatusOK, body)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
