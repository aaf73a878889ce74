package dto

import "github.com/shopspring/decimal"

type WalletResponse struct {
	UserID   string          `json:"userId"`
	WalletID string          `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
