package topics

const (
	// Bets
	BetPlaced = "bet_placed"

	// Fraude (alertas para revisão humana)
	FraudAlerts = "fraud_alerts"

	// DLQs
	BetPlacedDLQ = "bet_placed_dlq"
)
