package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
)

type BetResponse struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	Market       string          `json:"bet_type"`
	Selection    string          `json:"selection"`
	Odds         decimal.Decimal `json:"odds"`
	Amount       decimal.Decimal `json:"amount"`
	PotentialWin decimal.Decimal `json:"potential_win"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PlaceBetResponse struct {
	Bet        BetResponse     `json:"bet"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type ListBetsResponse struct {
	Bets   []BetResponse `json:"bets"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func FromBet(b repo.Bet) BetResponse {
	return BetResponse{
		ID:           b.ID,
		EventID:      b.EventID,
		Market:       b.Market,
		Selection:    b.Selection,
		Odds:         b.Odds,
		Amount:       b.Stake,
		PotentialWin: b.PotentialWin,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
	}
}

type SelectionOdds struct {
	Selection string          `json:"selection"`
	Odds      decimal.Decimal `json:"odds"`
}

type MarketOdds struct {
	Market     string          `json:"bet_type"`
	Selections []SelectionOdds `json:"selections"`
}

// EventResponse é a visão de exibição do evento; pode ter até um TTL de atraso.
// A aposta sempre revalida contra a leitura direta do banco.
type EventResponse struct {
	ID        string       `json:"id"`
	HomeTeam  string       `json:"home_team,omitempty"`
	AwayTeam  string       `json:"away_team,omitempty"`
	Status    string       `json:"status"`
	StartTime time.Time    `json:"start_time"`
	Markets   []MarketOdds `json:"markets"`
}

// FromEvent lista mercados e seleções na ordem da tabela do catálogo,
// omitindo seleções sem odd postada
func FromEvent(ev catalog.Event) EventResponse {
	out := EventResponse{
		ID:        ev.ID,
		HomeTeam:  ev.HomeTeam,
		AwayTeam:  ev.AwayTeam,
		Status:    string(ev.Status),
		StartTime: ev.StartTime,
		Markets:   []MarketOdds{},
	}
	for _, m := range catalog.Markets() {
		mo := MarketOdds{Market: string(m)}
		for _, s := range m.Selections() {
			if v, ok := ev.CurrentOdds(m, s); ok {
				mo.Selections = append(mo.Selections, SelectionOdds{Selection: string(s), Odds: v})
			}
		}
		if len(mo.Selections) > 0 {
			out.Markets = append(out.Markets, mo)
		}
	}
	return out
}
