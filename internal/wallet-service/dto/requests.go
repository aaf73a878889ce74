package dto

import "github.com/shopspring/decimal"

type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}
