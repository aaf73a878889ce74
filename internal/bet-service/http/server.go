package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/dto"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/ledger"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/limits"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
)

// UserHeader carrega a chave do usuário já autenticada pelo gateway de identidade
const UserHeader = "X-User-ID"

// Ledger define as operações usadas pelo handler HTTP
type Ledger interface {
	PlaceBet(ctx context.Context, in ledger.PlaceBetInput) (*ledger.Placement, error)
	GetBet(ctx context.Context, betID, userID string) (*repo.Bet, error)
	ListBets(ctx context.Context, userID string, limit, offset int) ([]repo.Bet, error)
}

type Server struct {
	log    *zap.Logger
	ledger Ledger
	events catalog.Source
}

// NewServer recebe em events a fonte de exibição (cacheada); a colocação da
// aposta nunca passa por ela
func NewServer(log *zap.Logger, l Ledger, events catalog.Source) *Server {
	return &Server{log: log, ledger: l, events: events}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/bets", s.placeBet)
	r.Get("/bets", s.listBets)
	r.Get("/bets/{id}", s.getBet)
	if s.events != nil {
		r.Get("/events/{id}", s.getEvent)
	}
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "bad json")
		return
	}
	if req.EventID == "" || req.Market == "" || req.Selection == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "event_id, bet_type and selection are required")
		return
	}

	p, err := s.ledger.PlaceBet(r.Context(), ledger.PlaceBetInput{
		UserID:       userID,
		EventID:      req.EventID,
		Market:       req.Market,
		Selection:    req.Selection,
		AcceptedOdds: req.Odds,
		Stake:        req.Amount,
	})
	if err != nil {
		status, code := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "bet placement failed, retry the request" // nunca expor detalhe do banco
		}
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		Bet:        dto.FromBet(p.Bet),
		NewBalance: p.BalanceAfter,
	})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	b, err := s.ledger.GetBet(r.Context(), chi.URLParam(r, "id"), userID)
	if errors.Is(err, ledger.ErrBetNotFound) {
		writeError(w, http.StatusNotFound, "bet_not_found", "bet not found")
		return
	}
	if err != nil {
		s.log.Error("get bet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not load bet")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(*b))
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, offset = ledger.ClampPage(limit, offset)

	bets, err := s.ledger.ListBets(r.Context(), userID, limit, offset)
	if err != nil {
		s.log.Error("list bets", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not list bets")
		return
	}

	out := dto.ListBetsResponse{Bets: make([]dto.BetResponse, 0, len(bets)), Limit: limit, Offset: offset}
	for _, b := range bets {
		out.Bets = append(out.Bets, dto.FromBet(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// getEvent mostra status e odds correntes para montar o bilhete
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event_not_found", "event not found")
		return
	}
	if err != nil {
		s.log.Error("get event", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not load event")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromEvent(*ev))
}

// statusFor mapeia a taxonomia do ledger para HTTP
func statusFor(err error) (int, string) {
	var ex *limits.ExceededError
	switch {
	case errors.Is(err, ledger.ErrEventNotFound):
		return http.StatusNotFound, "event_not_found"
	case errors.Is(err, ledger.ErrEventNotAvailable):
		return http.StatusConflict, "event_not_available"
	case errors.Is(err, ledger.ErrInvalidBet):
		return http.StatusBadRequest, "invalid_bet"
	case errors.Is(err, ledger.ErrInvalidBetAmount):
		return http.StatusBadRequest, "invalid_bet_amount"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.As(err, &ex), errors.Is(err, ledger.ErrBetLimitExceeded):
		return http.StatusUnprocessableEntity, "bet_limit_exceeded"
	case errors.Is(err, ledger.ErrAccountLocked):
		return http.StatusForbidden, "account_locked"
	case errors.Is(err, ledger.ErrOddsChanged):
		return http.StatusConflict, "odds_changed"
	default:
		// IntegrityError e PlacementFailed: o detalhe fica no log
		return http.StatusInternalServerError, "placement_failed"
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := strings.TrimSpace(r.Header.Get(UserHeader))
	if u == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", UserHeader+" required")
		return "", false
	}
	return u, true
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
