// Package limits aplica os limites de jogo responsável antes de qualquer débito.
package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrBetLimitExceeded = errors.New("bet limit exceeded")
	ErrAccountLocked    = errors.New("account locked")
)

// Window identifica qual limite foi estourado
type Window string

const (
	Daily   Window = "DAILY"
	Weekly  Window = "WEEKLY"
	Monthly Window = "MONTHLY"
	Single  Window = "SINGLE"
)

// Duração de cada janela móvel
var durations = map[Window]time.Duration{
	Daily:   24 * time.Hour,
	Weekly:  7 * 24 * time.Hour,
	Monthly: 30 * 24 * time.Hour,
}

// Limits espelha gambling_limits; nil em qualquer campo = sem teto
type Limits struct {
	UserID             string
	Daily              *decimal.Decimal
	Weekly             *decimal.Decimal
	Monthly            *decimal.Decimal
	Single             *decimal.Decimal
	SelfExclusionUntil *time.Time
}

// ExceededError nomeia o limite estourado para a mensagem ao usuário
type ExceededError struct {
	Window Window
	Limit  decimal.Decimal
	Staked decimal.Decimal // já apostado na janela (zero para SINGLE)
	Stake  decimal.Decimal
}

func (e *ExceededError) Error() string {
	if e.Window == Single {
		return fmt.Sprintf("bet limit exceeded: single stake %s over %s", e.Stake.StringFixed(2), e.Limit.StringFixed(2))
	}
	return fmt.Sprintf("bet limit exceeded: %s cap %s (staked %s + %s)",
		e.Window, e.Limit.StringFixed(2), e.Staked.StringFixed(2), e.Stake.StringFixed(2))
}

func (e *ExceededError) Unwrap() error { return ErrBetLimitExceeded }

// StakeReader soma as apostas já comprometidas do usuário desde since.
// Deve ler dentro da mesma transação da aposta pendente.
type StakeReader interface {
	StakedSince(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error)
}

// Evaluator não guarda estado; os dados vêm do ledger
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Check devolve nil, ErrAccountLocked ou *ExceededError.
// lim == nil significa que o usuário não configurou limites.
func (ev *Evaluator) Check(ctx context.Context, r StakeReader, lim *Limits, userID string, stake decimal.Decimal, now time.Time) error {
	if lim == nil {
		return nil
	}

	// autoexclusão vem primeiro e encerra a avaliação
	if lim.SelfExclusionUntil != nil && lim.SelfExclusionUntil.After(now) {
		return ErrAccountLocked
	}

	if lim.Single != nil && stake.GreaterThan(*lim.Single) {
		return &ExceededError{Window: Single, Limit: *lim.Single, Stake: stake}
	}

	for _, w := range []struct {
		window Window
		cap    *decimal.Decimal
	}{
		{Daily, lim.Daily},
		{Weekly, lim.Weekly},
		{Monthly, lim.Monthly},
	} {
		if w.cap == nil {
			continue
		}
		staked, err := r.StakedSince(ctx, userID, now.Add(-WindowDuration(w.window)))
		if err != nil {
			return fmt.Errorf("%s window total: %w", w.window, err)
		}
		if staked.Add(stake).GreaterThan(*w.cap) {
			return &ExceededError{Window: w.window, Limit: *w.cap, Staked: staked, Stake: stake}
		}
	}

	return nil
}

// WindowDuration expõe a duração da janela; SINGLE não tem janela
func WindowDuration(w Window) time.Duration { return durations[w] }
