package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status do ciclo de vida do evento
type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusLive      Status = "LIVE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// ErrNotFound indica evento inexistente
var ErrNotFound = errors.New("event not found")

// Event é a visão somente-leitura do evento esportivo. Quem escreve é o
// pipeline de ingestão de odds.
type Event struct {
	ID        string                                  `json:"id"`
	HomeTeam  string                                  `json:"home_team,omitempty"`
	AwayTeam  string                                  `json:"away_team,omitempty"`
	Status    Status                                  `json:"status"`
	StartTime time.Time                               `json:"start_time"`
	Odds      map[Market]map[Selection]decimal.Decimal `json:"odds"`
}

// OpenAt diz se o evento aceita apostas no instante now
func (e *Event) OpenAt(now time.Time) bool {
	return e.Status == StatusUpcoming && e.StartTime.After(now)
}

// CurrentOdds devolve a odd postada para o mercado/seleção
func (e *Event) CurrentOdds(m Market, s Selection) (decimal.Decimal, bool) {
	sel, ok := e.Odds[m]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := sel[s]
	return v, ok
}

// SetOdds preenche uma odd; usado pelos leitores de evento
func (e *Event) SetOdds(m Market, s Selection, v decimal.Decimal) {
	if e.Odds == nil {
		e.Odds = make(map[Market]map[Selection]decimal.Decimal)
	}
	if e.Odds[m] == nil {
		e.Odds[m] = make(map[Selection]decimal.Decimal)
	}
	e.Odds[m][s] = v
}

// Source é o colaborador que expõe get_event
type Source interface {
	GetEvent(ctx context.Context, id string) (*Event, error)
}
