// Package ledger orquestra a colocação de apostas: valida, debita a carteira
// cifrada e registra aposta e lançamento numa única transação.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/limits"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/odds"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
)

const (
	DefaultMinStake  = "1.00"
	DefaultPageSize  = 20
	MaxPageSize      = 100
	payoutDecimals   = 2
	stakeDecimals    = 2
	oddsDecimals     = 3 // bets.odds é NUMERIC(10,3)
	descriptionStake = "Bet placed on event "
)

// Store é a parte do repositório usada pelo ledger
type Store interface {
	InTx(ctx context.Context, fn func(repo.Tx) error) error
	GetBet(ctx context.Context, betID, userID string) (*repo.Bet, error)
	ListBets(ctx context.Context, userID string, limit, offset int) ([]repo.Bet, error)
}

// Config reúne os colaboradores do ledger. Store, Events e Codec são obrigatórios.
type Config struct {
	Store    Store
	Events   catalog.Source
	Codec    *balance.Codec
	Odds     *odds.Validator
	Limits   *limits.Evaluator
	MinStake decimal.Decimal
	Notifier Notifier
	Metrics  *metrics.Ledger
	Log      *zap.Logger
	Now      func() time.Time
}

type Ledger struct {
	store    Store
	events   catalog.Source
	codec    *balance.Codec
	odds     *odds.Validator
	limits   *limits.Evaluator
	minStake decimal.Decimal
	notifier Notifier
	metrics  *metrics.Ledger
	log      *zap.Logger
	now      func() time.Time
}

func New(c Config) *Ledger {
	l := &Ledger{
		store:    c.Store,
		events:   c.Events,
		codec:    c.Codec,
		odds:     c.Odds,
		limits:   c.Limits,
		minStake: c.MinStake,
		notifier: c.Notifier,
		metrics:  c.Metrics,
		log:      c.Log,
		now:      c.Now,
	}
	if l.odds == nil {
		l.odds = odds.NewValidator(decimal.Zero)
	}
	if l.limits == nil {
		l.limits = limits.NewEvaluator()
	}
	if !l.minStake.IsPositive() {
		l.minStake = decimal.RequireFromString(DefaultMinStake)
	}
	if l.notifier == nil {
		l.notifier = NopNotifier{}
	}
	if l.metrics == nil {
		l.metrics = metrics.NewLedger(nil)
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// PlaceBetInput chega já autenticado: UserID vem do colaborador de identidade
type PlaceBetInput struct {
	UserID       string
	EventID      string
	Market       string
	Selection    string
	AcceptedOdds decimal.Decimal
	Stake        decimal.Decimal
}

// Placement é o resultado de uma aposta confirmada.
// BalanceAfter é só para exibição; o armazenado continua cifrado.
type Placement struct {
	Bet           repo.Bet
	TransactionID string
	WalletID      string
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// PlaceBet executa a colocação completa. Ou tudo é gravado, ou nada.
func (l *Ledger) PlaceBet(ctx context.Context, in PlaceBetInput) (p *Placement, err error) {
	start := time.Now()
	defer func() {
		l.metrics.Placements.WithLabelValues(resultLabel(err)).Inc()
		l.metrics.PlacementLatency.Observe(time.Since(start).Seconds())
	}()

	p, err = l.placeBet(ctx, in)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrPlacementFailed) {
			l.log.Error("place bet failed",
				zap.String("userId", in.UserID),
				zap.String("eventId", in.EventID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	l.log.Info("bet placed",
		zap.String("betId", p.Bet.ID),
		zap.String("userId", p.Bet.UserID),
		zap.String("eventId", p.Bet.EventID),
		zap.String("stake", p.Bet.Stake.StringFixed(stakeDecimals)),
	)

	// depois do commit: o monitor nunca altera o resultado já decidido
	l.notifier.BetCommitted(ctx, p)
	return p, nil
}

func (l *Ledger) placeBet(ctx context.Context, in PlaceBetInput) (*Placement, error) {
	// precisão do timestamptz: created_at gravado == PlacedAt publicado
	now := l.now().Truncate(time.Microsecond)

	// 1) evento: leitura sem lock, o core nunca escreve nele
	ev, err := l.events.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !ev.OpenAt(now) {
		return nil, ErrEventNotAvailable
	}

	// 2) mercado/seleção canônicos
	market, selection, err := catalog.Normalize(in.Market, in.Selection)
	if err != nil {
		return nil, err
	}
	// odd gravada tem de ser exatamente a usada no retorno potencial
	if !in.AcceptedOdds.Equal(in.AcceptedOdds.Truncate(oddsDecimals)) {
		return nil, fmt.Errorf("%w: odds %s has more than %d decimal places", ErrInvalidBet, in.AcceptedOdds.String(), oddsDecimals)
	}

	// 3) valor mínimo e precisão de centavos
	if in.Stake.LessThan(l.minStake) || !in.Stake.Equal(in.Stake.Truncate(stakeDecimals)) {
		return nil, fmt.Errorf("%w: stake %s (minimum %s)", ErrInvalidBetAmount, in.Stake.String(), l.minStake.StringFixed(stakeDecimals))
	}

	var p *Placement
	err = l.store.InTx(ctx, func(tx repo.Tx) error {
		// 4) lock da carteira é a primeira leitura da transação
		w, err := tx.LockWallet(ctx, in.UserID)
		if err != nil {
			return err
		}
		bal, err := l.codec.Decrypt(w.Balance)
		if err != nil {
			l.metrics.IntegrityFailures.Inc()
			l.log.Error("wallet balance failed authentication",
				zap.String("walletId", w.ID),
				zap.String("userId", in.UserID),
			)
			return err
		}

		// 5) saldo
		if in.Stake.GreaterThan(bal) {
			return ErrInsufficientFunds
		}

		// 6) limites de jogo responsável (soma enxerga o que já foi commitado)
		lim, err := tx.GetLimits(ctx, in.UserID)
		if err != nil {
			return err
		}
		if err := l.limits.Check(ctx, tx, lim, in.UserID, in.Stake, now); err != nil {
			return err
		}

		// 7) odd aceita x odd corrente
		current, _ := ev.CurrentOdds(market, selection)
		if err := l.odds.Validate(in.AcceptedOdds, current); err != nil {
			return fmt.Errorf("%w: requested %s, current %s", err, in.AcceptedOdds.String(), current.String())
		}

		// 8) retorno potencial sempre pela odd aceita
		payout := in.Stake.Mul(in.AcceptedOdds).Round(payoutDecimals)

		// 9) aposta
		bet := repo.Bet{
			ID:           uuid.NewString(),
			UserID:       in.UserID,
			EventID:      ev.ID,
			Market:       string(market),
			Selection:    string(selection),
			Odds:         in.AcceptedOdds,
			Stake:        in.Stake,
			PotentialWin: payout,
			Status:       repo.BetPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.InsertBet(ctx, &bet); err != nil {
			return err
		}

		// 10) novo saldo cifrado com nonce novo, par substituído de uma vez
		newBal := bal.Sub(in.Stake)
		sealed, err := l.codec.Encrypt(newBal)
		if err != nil {
			return fmt.Errorf("encrypt balance: %w", err)
		}
		if err := tx.ReplaceBalance(ctx, w.ID, sealed); err != nil {
			return err
		}

		// 11) lançamento
		entry := repo.Transaction{
			ID:            uuid.NewString(),
			UserID:        in.UserID,
			WalletID:      w.ID,
			Type:          repo.TxStakeDebit,
			Amount:        in.Stake,
			BalanceBefore: bal,
			BalanceAfter:  newBal,
			Description:   descriptionStake + ev.ID,
			Metadata: repo.Metadata{
				BetID:             bet.ID,
				EventID:           ev.ID,
				TransactionSource: repo.SourceBetting,
			},
			CreatedAt: now,
		}
		if err := tx.InsertTransaction(ctx, &entry); err != nil {
			return err
		}

		p = &Placement{
			Bet:           bet,
			TransactionID: entry.ID,
			WalletID:      w.ID,
			BalanceBefore: bal,
			BalanceAfter:  newBal,
		}
		return nil
	})
	// 12) commit feito pelo InTx; erro aqui = nada persistido
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetBet só enxerga apostas do próprio usuário
func (l *Ledger) GetBet(ctx context.Context, betID, userID string) (*repo.Bet, error) {
	b, err := l.store.GetBet(ctx, betID, userID)
	if err != nil {
		if errors.Is(err, ErrBetNotFound) {
			return nil, ErrBetNotFound
		}
		return nil, fmt.Errorf("get bet: %w", err)
	}
	return b, nil
}

// ListBets pagina as apostas do usuário; limit fora de 1..100 é ajustado
func (l *Ledger) ListBets(ctx context.Context, userID string, limit, offset int) ([]repo.Bet, error) {
	limit, offset = ClampPage(limit, offset)
	bets, err := l.store.ListBets(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	return bets, nil
}

// ClampPage aplica o default e os limites de paginação
func ClampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
