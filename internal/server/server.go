// Package server exposes the scoring service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/TuanBC/credit-scoring-onchain/internal/config"
	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
	"github.com/TuanBC/credit-scoring-onchain/internal/service"
	"github.com/TuanBC/credit-scoring-onchain/internal/version"
)

// Evaluator is the scoring dependency of the HTTP layer.
type Evaluator interface {
	EvaluateWallet(ctx context.Context, address string) (service.Result, error)
}

// ReportGenerator renders markdown reports from evaluations.
type ReportGenerator interface {
	Generate(ctx context.Context, result service.Result) (string, error)
}

// Server hosts the wallet scoring API.
type Server struct {
	cfg       config.ServerConfig
	evaluator Evaluator
	reports   ReportGenerator
	logger    zerolog.Logger
}

// New wires the HTTP server.
func New(cfg config.ServerConfig, evaluator Evaluator, reports ReportGenerator, logger zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		evaluator: evaluator,
		reports:   reports,
		logger:    logger.With().Str("component", "http_server").Logger(),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/wallets/{address}/score", s.handleScore).Methods(http.MethodGet)
	v1.HandleFunc("/wallets/{address}/timeseries", s.handleTimeSeries).Methods(http.MethodGet)
	v1.HandleFunc("/wallets/{address}/report", s.handleReport).Methods(http.MethodGet)

	r.Use(s.logRequests)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	result, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	result, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wallet_address": result.WalletAddress,
		"time_series":    result.Breakdown.TimeSeries,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.evaluate(w, r)
	if !ok {
		return
	}

	if s.reports == nil {
		writeError(w, http.StatusNotImplemented, "report generation not configured")
		return
	}

	content, err := s.reports.Generate(r.Context(), result)
	if err != nil {
		s.logger.Error().Err(err).Str("wallet", result.WalletAddress).Msg("report generation failed")
		writeError(w, http.StatusBadGateway, "report generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallet_address": result.WalletAddress,
		"credit_score":   result.Breakdown.CreditScore,
		"report":         content,
	})
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) (service.Result, bool) {
	address := mux.Vars(r)["address"]

	result, err := s.evaluator.EvaluateWallet(r.Context(), address)
	if err != nil {
		s.writeEvaluationError(w, address, err)
		return service.Result{}, false
	}
	return result, true
}

func (s *Server) writeEvaluationError(w http.ResponseWriter, address string, err error) {
	var schemaErr *engine.SchemaError
	switch {
	case errors.Is(err, service.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "invalid ethereum wallet address")
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusUnprocessableEntity, schemaErr.Error())
	default:
		s.logger.Error().Err(err).Str("wallet", address).Msg("evaluation failed")
		writeError(w, http.StatusBadGateway, "failed to evaluate wallet")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
