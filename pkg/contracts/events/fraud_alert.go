package events

import "time"

// Evento emitido pelo monitor de fraude quando uma aposta é sinalizada.
// Não bloqueia nada: serve para revisão manual.
type FraudAlert struct {
	AlertID  string    `json:"alert_id"`
	BetID    string    `json:"bet_id"`
	UserID   string    `json:"user_id"`
	Rule     string    `json:"rule"` // "VELOCITY" | "SIZE_ANOMALY"
	Detail   string    `json:"detail"`
	Observed string    `json:"observed"`
	Limit    string    `json:"limit"`
	Ts       time.Time `json:"ts"`
}
