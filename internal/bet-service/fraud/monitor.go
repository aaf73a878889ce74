// Package fraud roda as regras de velocidade e de tamanho depois do commit.
// Nada aqui bloqueia ou desfaz apostas: só marca e alerta para revisão.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
	"github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

const (
	RuleVelocity    = "VELOCITY"
	RuleSizeAnomaly = "SIZE_ANOMALY"
)

// Rules agrupa os limiares das duas regras
type Rules struct {
	VelocityCount  int
	VelocityWindow time.Duration
	SizeMultiplier decimal.Decimal
	SizeWindow     time.Duration
}

func DefaultRules() Rules {
	return Rules{
		VelocityCount:  10,
		VelocityWindow: 10 * time.Minute,
		SizeMultiplier: decimal.NewFromInt(5),
		SizeWindow:     30 * 24 * time.Hour,
	}
}

// History é a leitura (e marcação) pós-commit do histórico do usuário
type History interface {
	CountBetsBetween(ctx context.Context, userID string, since, until time.Time) (int, error)
	AverageStakeBetween(ctx context.Context, userID string, since, until time.Time, excludeBetID string) (decimal.Decimal, int, error)
	FlagBet(ctx context.Context, a *repo.FraudAlert) (bool, error)
}

// AlertPublisher entrega o alerta para a fila de revisão
type AlertPublisher interface {
	PublishFraudAlert(ctx context.Context, a events.FraudAlert) error
}

// Finding é uma regra disparada
type Finding struct {
	Rule     string
	Observed decimal.Decimal
	Limit    decimal.Decimal
	Detail   string
}

type Monitor struct {
	history   History
	publisher AlertPublisher
	rules     Rules
	log       *zap.Logger
	metrics   *metrics.Fraud
}

// NewMonitor aceita publisher nil (alerta fica só no banco e no log)
func NewMonitor(h History, p AlertPublisher, rules Rules, log *zap.Logger, m *metrics.Fraud) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewFraud(nil)
	}
	return &Monitor{history: h, publisher: p, rules: rules, log: log, metrics: m}
}

// Inspect avalia a aposta e registra o que disparar. As duas regras são
// independentes: erro em uma não impede a outra.
func (m *Monitor) Inspect(ctx context.Context, e events.BetPlaced) ([]Finding, error) {
	stake, err := decimal.NewFromString(e.Stake)
	if err != nil {
		return nil, fmt.Errorf("bet %s stake %q: %w", e.BetID, e.Stake, err)
	}
	ref := e.PlacedAt
	if ref.IsZero() {
		ref = time.Now()
	}

	var (
		findings []Finding
		errs     []error
	)

	if f, err := m.velocity(ctx, e, ref); err != nil {
		m.metrics.Errors.WithLabelValues("velocity").Inc()
		errs = append(errs, err)
	} else if f != nil {
		findings = append(findings, *f)
	}

	if f, err := m.sizeAnomaly(ctx, e, stake, ref); err != nil {
		m.metrics.Errors.WithLabelValues("size").Inc()
		errs = append(errs, err)
	} else if f != nil {
		findings = append(findings, *f)
	}

	for _, f := range findings {
		if err := m.flag(ctx, e, f); err != nil {
			errs = append(errs, err)
		}
	}

	return findings, errors.Join(errs...)
}

// velocity: N ou mais apostas (incluindo esta) na janela
func (m *Monitor) velocity(ctx context.Context, e events.BetPlaced, ref time.Time) (*Finding, error) {
	n, err := m.history.CountBetsBetween(ctx, e.UserID, ref.Add(-m.rules.VelocityWindow), ref)
	if err != nil {
		return nil, fmt.Errorf("velocity check: %w", err)
	}
	if n < m.rules.VelocityCount {
		return nil, nil
	}
	return &Finding{
		Rule:     RuleVelocity,
		Observed: decimal.NewFromInt(int64(n)),
		Limit:    decimal.NewFromInt(int64(m.rules.VelocityCount)),
		Detail:   fmt.Sprintf("%d bets in the last %s", n, m.rules.VelocityWindow),
	}, nil
}

// sizeAnomaly: stake acima de k vezes a média; sem histórico não dispara
func (m *Monitor) sizeAnomaly(ctx context.Context, e events.BetPlaced, stake decimal.Decimal, ref time.Time) (*Finding, error) {
	avg, n, err := m.history.AverageStakeBetween(ctx, e.UserID, ref.Add(-m.rules.SizeWindow), ref, e.BetID)
	if err != nil {
		return nil, fmt.Errorf("size check: %w", err)
	}
	if n == 0 || !avg.IsPositive() {
		return nil, nil
	}
	limit := avg.Mul(m.rules.SizeMultiplier)
	if !stake.GreaterThan(limit) {
		return nil, nil
	}
	return &Finding{
		Rule:     RuleSizeAnomaly,
		Observed: stake,
		Limit:    limit,
		Detail:   fmt.Sprintf("stake %s over %sx average %s", stake.StringFixed(2), m.rules.SizeMultiplier, avg.StringFixed(2)),
	}, nil
}

func (m *Monitor) flag(ctx context.Context, e events.BetPlaced, f Finding) error {
	alert := &repo.FraudAlert{
		ID:        uuid.NewString(),
		BetID:     e.BetID,
		UserID:    e.UserID,
		Rule:      f.Rule,
		Detail:    f.Detail,
		Observed:  f.Observed,
		Threshold: f.Limit.Round(2),
	}

	created, err := m.history.FlagBet(ctx, alert)
	if err != nil {
		m.metrics.Errors.WithLabelValues("flag").Inc()
		return fmt.Errorf("flag bet %s (%s): %w", e.BetID, f.Rule, err)
	}
	if !created {
		return nil // já sinalizada (reentrega)
	}

	m.metrics.Flags.WithLabelValues(f.Rule).Inc()
	m.log.Warn("fraud alert",
		zap.String("rule", f.Rule),
		zap.String("betId", e.BetID),
		zap.String("userId", e.UserID),
		zap.String("observed", f.Observed.String()),
		zap.String("limit", f.Limit.String()),
	)

	if m.publisher == nil {
		return nil
	}
	if err := m.publisher.PublishFraudAlert(ctx, events.FraudAlert{
		AlertID:  alert.ID,
		BetID:    e.BetID,
		UserID:   e.UserID,
		Rule:     f.Rule,
		Detail:   f.Detail,
		Observed: f.Observed.String(),
		Limit:    f.Limit.StringFixed(2),
		Ts:       time.Now(),
	}); err != nil {
		m.metrics.Errors.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	return nil
}
