package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
)

// EventSource lê a tabela events mantida pelo pipeline de odds
type EventSource struct{ db *sql.DB }

func NewEventSource(db *sql.DB) *EventSource { return &EventSource{db: db} }

func (s *EventSource) GetEvent(ctx context.Context, id string) (*catalog.Event, error) {
	var (
		ev     catalog.Event
		status string
		cols   [6]decimal.NullDecimal
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, home_team, away_team, status, event_date,
		       moneyline_home, moneyline_away, spread_home_odds, spread_away_odds, over_odds, under_odds
		FROM events WHERE id=$1`, id).
		Scan(&ev.ID, &ev.HomeTeam, &ev.AwayTeam, &status, &ev.StartTime,
			&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	ev.Status = catalog.Status(status)

	// mesma ordem das colunas acima
	layout := [6]struct {
		m catalog.Market
		s catalog.Selection
	}{
		{catalog.Moneyline, catalog.Home},
		{catalog.Moneyline, catalog.Away},
		{catalog.Spread, catalog.Home},
		{catalog.Spread, catalog.Away},
		{catalog.Total, catalog.Over},
		{catalog.Total, catalog.Under},
	}
	for i, c := range cols {
		if c.Valid {
			ev.SetOdds(layout[i].m, layout[i].s, c.Decimal)
		}
	}
	return &ev, nil
}

// UpsertEvent grava um evento com as odds correntes (seed e testes)
func (s *EventSource) UpsertEvent(ctx context.Context, ev *catalog.Event) error {
	odd := func(m catalog.Market, sel catalog.Selection) decimal.NullDecimal {
		v, ok := ev.CurrentOdds(m, sel)
		return decimal.NullDecimal{Decimal: v, Valid: ok}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id,home_team,away_team,status,event_date,
		                    moneyline_home,moneyline_away,spread_home_odds,spread_away_odds,over_odds,under_odds)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			home_team=EXCLUDED.home_team, away_team=EXCLUDED.away_team,
			status=EXCLUDED.status, event_date=EXCLUDED.event_date,
			moneyline_home=EXCLUDED.moneyline_home, moneyline_away=EXCLUDED.moneyline_away,
			spread_home_odds=EXCLUDED.spread_home_odds, spread_away_odds=EXCLUDED.spread_away_odds,
			over_odds=EXCLUDED.over_odds, under_odds=EXCLUDED.under_odds,
			updated_at=NOW()`,
		ev.ID, ev.HomeTeam, ev.AwayTeam, string(ev.Status), ev.StartTime,
		odd(catalog.Moneyline, catalog.Home), odd(catalog.Moneyline, catalog.Away),
		odd(catalog.Spread, catalog.Home), odd(catalog.Spread, catalog.Away),
		odd(catalog.Total, catalog.Over), odd(catalog.Total, catalog.Under),
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}
