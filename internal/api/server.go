package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/aggregate"
)

// Server exposes the per-wallet summary and history queries over HTTP.
type Server struct {
	service *aggregate.Service
	logger  *zap.Logger
	srv     *http.Server
}

func NewServer(addr string, service *aggregate.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{service: service, logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table. Split out so tests can drive it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vault/deposits/{wallet}", s.handleDepositSummary)
	mux.HandleFunc("GET /vault/deposits/{wallet}/history", s.handleDepositHistory)
	mux.HandleFunc("GET /vault/withdrawals/{wallet}", s.handleWithdrawSummary)
	mux.HandleFunc("GET /vault/withdrawals/{wallet}/history", s.handleWithdrawHistory)
	return mux
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleDepositSummary(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.wallet(w, r)
	if !ok {
		return
	}
	summary, err := s.service.SummarizeDeposits(r.Context(), wallet)
	if err != nil {
		s.fail(w, "summarize deposits", err)
		return
	}
	s.respond(w, summary)
}

func (s *Server) handleWithdrawSummary(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.wallet(w, r)
	if !ok {
		return
	}
	summary, err := s.service.SummarizeWithdrawals(r.Context(), wallet)
	if err != nil {
		s.fail(w, "summarize withdrawals", err)
		return
	}
	s.respond(w, summary)
}

func (s *Server) handleDepositHistory(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.wallet(w, r)
	if !ok {
		return
	}
	records, err := s.service.DepositHistory(r.Context(), wallet)
	if err != nil {
		s.fail(w, "deposit history", err)
		return
	}
	s.respond(w, records)
}

func (s *Server) handleWithdrawHistory(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.wallet(w, r)
	if !ok {
		return
	}
	records, err := s.service.WithdrawHistory(r.Context(), wallet)
	if err != nil {
		s.fail(w, "withdraw history", err)
		return
	}
	s.respond(w, records)
}

func (s *Server) wallet(w http.ResponseWriter, r *http.Request) (string, bool) {
	wallet := r.PathValue("wallet")
	if !common.IsHexAddress(wallet) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid wallet address"})
		return "", false
	}
	return wallet, true
}

// fail maps a store outage to an explicit query failure, never a silent
// empty result.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error("query failed", zap.String("op", op), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "query failed"})
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}
