// Package service exposes the progress of a running session over HTTP.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/op-verbench/metrics"
	"github.com/ethereum-optimism/infra/op-verbench/runner"
)

const (
	StatusHost = "0.0.0.0"
	StatusPort = "8080"
)

// ProgressSource provides the snapshot served on /progress.
type ProgressSource interface {
	Snapshot() runner.ProgressSnapshot
}

type StatusServer struct {
	log      log.Logger
	source   ProgressSource
	server   *http.Server
	listener net.Listener
}

func NewStatusServer(logger log.Logger, source ProgressSource) *StatusServer {
	if logger == nil {
		logger = log.New()
	}
	return &StatusServer{
		log:    logger,
		source: source,
	}
}

// Handler returns the routes of the status server wrapped in a permissive CORS policy.
func (s *StatusServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", s.HandleHealthz)
	hdlr.HandleFunc("/progress", s.HandleProgress)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Start binds addr and serves in the background.
func (s *StatusServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server failed", "err", err)
			metrics.RecordErrorDetails("status_server", err)
		}
	}()
	s.log.Info("status server started", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound address, useful when started on port 0.
func (s *StatusServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

func (s *StatusServer) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		http.Error(w, "no session running", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.log.Warn("failed to encode progress", "err", err)
	}
}
