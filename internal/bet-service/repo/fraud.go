package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountBetsBetween conta apostas do usuário em [since, until]. until é o
// instante da aposta inspecionada, que entra na contagem; apostas posteriores
// não entram, então atraso na inspeção não muda o resultado.
func (p *Postgres) CountBetsBetween(ctx context.Context, userID string, since, until time.Time) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bets WHERE user_id=$1 AND created_at >= $2 AND created_at <= $3`,
		userID, since, until).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bets: %w", err)
	}
	return n, nil
}

// AverageStakeBetween devolve a média e o número de apostas liquidadas ou
// pendentes em [since, until], desconsiderando excludeBetID (a aposta sob inspeção)
func (p *Postgres) AverageStakeBetween(ctx context.Context, userID string, since, until time.Time, excludeBetID string) (decimal.Decimal, int, error) {
	var (
		avg decimal.NullDecimal
		n   int
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT AVG(amount), COUNT(*)
		FROM bets
		WHERE user_id=$1 AND created_at >= $2 AND created_at <= $3 AND id <> $4
		  AND status NOT IN ('CANCELLED','REFUNDED')`, userID, since, until, excludeBetID).Scan(&avg, &n)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("average stake: %w", err)
	}
	if !avg.Valid {
		return decimal.Zero, 0, nil
	}
	return avg.Decimal, n, nil
}

// FlagBet marca o lançamento da aposta e grava o alerta revisável.
// Devolve false quando o alerta (bet, regra) já existia.
func (p *Postgres) FlagBet(ctx context.Context, a *FraudAlert) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO fraud_alerts (id,bet_id,user_id,rule,detail,observed,threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (bet_id, rule) DO NOTHING`,
		a.ID, a.BetID, a.UserID, a.Rule, a.Detail, a.Observed, a.Threshold)
	if err != nil {
		return false, fmt.Errorf("insert fraud alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE transactions SET is_fraud_flagged=TRUE
		WHERE metadata->>'bet_id' = $1`, a.BetID); err != nil {
		return false, fmt.Errorf("flag transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}
