package dto

import "github.com/shopspring/decimal"

// PlaceBetRequest: o usuário vem do header X-User-ID, nunca do corpo.
// Valores aceitam número ou string JSON ("50.00").
type PlaceBetRequest struct {
	EventID   string          `json:"event_id"`
	Market    string          `json:"bet_type"`  // MONEYLINE | SPREAD | TOTAL
	Selection string          `json:"selection"` // HOME | AWAY | OVER | UNDER
	Odds      decimal.Decimal `json:"odds"`      // odd que o cliente viu
	Amount    decimal.Decimal `json:"amount"`
}
