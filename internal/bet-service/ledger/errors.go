package ledger

import (
	"errors"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/limits"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/odds"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
)

// Resultados terminais do PlaceBet. Nenhum é re-tentado pelo ledger.
var (
	ErrEventNotFound     = catalog.ErrNotFound
	ErrEventNotAvailable = errors.New("event not available for betting")
	ErrInvalidBet        = catalog.ErrInvalidSelection
	ErrInvalidBetAmount  = errors.New("invalid bet amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBetLimitExceeded  = limits.ErrBetLimitExceeded
	ErrAccountLocked     = limits.ErrAccountLocked
	ErrOddsChanged       = odds.ErrOddsChanged
	ErrIntegrity         = balance.ErrIntegrity
	ErrPlacementFailed   = errors.New("bet placement failed")

	ErrBetNotFound = repo.ErrBetNotFound
)

// placementError mantém a causa de armazenamento acessível via errors.Is
// sem deixar de ser ErrPlacementFailed para quem chama
type placementError struct{ cause error }

func (e *placementError) Error() string   { return ErrPlacementFailed.Error() + ": " + e.cause.Error() }
func (e *placementError) Unwrap() []error { return []error{ErrPlacementFailed, e.cause} }

// domínio passa adiante; o resto vira PlacementFailed
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrEventNotFound, ErrEventNotAvailable, ErrInvalidBet, ErrInvalidBetAmount,
		ErrInsufficientFunds, ErrBetLimitExceeded, ErrAccountLocked, ErrOddsChanged,
		ErrIntegrity, ErrPlacementFailed,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &placementError{cause: err}
}

// resultLabel é o rótulo da métrica de resultado
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrEventNotAvailable):
		return "event_not_available"
	case errors.Is(err, ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, ErrInvalidBetAmount):
		return "invalid_bet_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrBetLimitExceeded):
		return "bet_limit_exceeded"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrOddsChanged):
		return "odds_changed"
	case errors.Is(err, ErrIntegrity):
		return "integrity_error"
	default:
		return "placement_failed"
	}
}
