package events

import "time"

// Evento publicado no tópico "bet_placed" após o commit da aposta.
// Valores monetários e odds trafegam como string decimal ("50.00", "1.85").
type BetPlaced struct {
	BetID         string    `json:"bet_id"`
	UserID        string    `json:"user_id"`
	WalletID      string    `json:"wallet_id"`
	TransactionID string    `json:"transaction_id"`
	EventID       string    `json:"event_id"`
	Market        string    `json:"market"`
	Selection     string    `json:"selection"`
	Stake         string    `json:"stake"`
	Odds          string    `json:"odds"`
	PlacedAt      time.Time `json:"placed_at"`
	TsUnixMs      int64     `json:"ts_unix_ms"`
}
