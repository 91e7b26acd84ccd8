// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/bureau-dstat/lib/collector"
	"github.com/bureau-foundation/bureau-dstat/lib/sampler"
)

// requestTimeout bounds how long a handler waits on the reactor.
const requestTimeout = 5 * time.Second

// Source is the collector surface the server reads.
type Source interface {
	Status(ctx context.Context) (collector.Status, error)
	Done() <-chan struct{}
	Err() error
}

// StatsFunc inspects a sampler pid. Tests replace sampler.ReadStats.
type StatsFunc func(pid int) (sampler.Stats, error)

// Config configures a Server.
type Config struct {
	// Listen is a TCP address such as "127.0.0.1:9102".
	Listen string

	Source   Source
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	// Stats defaults to sampler.ReadStats.
	Stats StatsFunc
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	collector.Status
	Sampler *sampler.Stats `json:"sampler,omitempty"`
}

// Server is the HTTP status endpoint.
type Server struct {
	source     Source
	stats      StatsFunc
	logger     *slog.Logger
	listen     string
	listener   net.Listener
	httpServer *http.Server
}

// New builds a server. It does not listen until Start.
func New(config Config) *Server {
	stats := config.Stats
	if stats == nil {
		stats = sampler.ReadStats
	}
	s := &Server{
		source: config.Source,
		stats:  stats,
		logger: config.Logger.With("component", "statusserver"),
		listen: config.Listen,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(config.Gatherer),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the router. Exposed for tests and for embedding in
// another server.
func (s *Server) Handler(gatherer prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

// Start listens on the configured address and serves in the
// background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.listen, err)
	}
	s.listener = listener
	s.logger.Info("status server started", "address", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status server: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.source.Done():
		response := healthResponse{Status: "stopped"}
		if err := s.source.Err(); err != nil {
			response = healthResponse{Status: "faulted", Error: err.Error()}
		}
		writeJSON(w, http.StatusServiceUnavailable, response)
	default:
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	status, err := s.source.Status(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	response := StatusResponse{Status: status}
	if status.Running && status.Pid > 0 {
		stats, err := s.stats(status.Pid)
		if err != nil {
			s.logger.Debug("reading sampler stats", "pid", status.Pid, "error", err)
		} else {
			response.Sampler = &stats
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(value)
}
