package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/wallet-service/dto"
	"github.com/radieske/sports-bet-ledger/internal/wallet-service/repo"
)

// UserHeader carrega a chave do usuário já autenticada pelo gateway de identidade
const UserHeader = "X-User-ID"

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, bal decimal.Decimal, err error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (walletID string, newBalance decimal.Decimal, err error)
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log  *zap.Logger
	repo Repo
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna o roteador HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/wallet", s.getWallet)
	r.Post("/wallet/deposit", s.deposit)
	return r
}

// getWallet retorna (ou cria) a carteira e saldo do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	walletID, bal, err := s.repo.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		s.fail(w, walletID, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, WalletID: walletID, Balance: bal})
}

// deposit adiciona saldo à carteira do usuário
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad_request", Message: "bad json"})
		return
	}
	walletID, bal, err := s.repo.Deposit(r.Context(), userID, req.Amount, req.ExternalRef)
	if err != nil {
		s.fail(w, walletID, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, WalletID: walletID, Balance: bal})
}

func (s *Server) fail(w http.ResponseWriter, walletID string, err error) {
	switch {
	case errors.Is(err, repo.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_amount", Message: err.Error()})
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "wallet_not_found", Message: "wallet not found"})
	case errors.Is(err, balance.ErrIntegrity):
		s.log.Error("wallet balance failed authentication", zap.String("walletId", walletID))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "integrity_error", Message: "wallet unavailable"})
	default:
		s.log.Error("wallet operation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal", Message: "wallet operation failed"})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := strings.TrimSpace(r.Header.Get(UserHeader))
	if u == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized", Message: UserHeader + " required"})
		return "", false
	}
	return u, true
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
