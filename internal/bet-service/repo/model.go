package repo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
)

// Status da aposta que este serviço grava ou filtra. WON/LOST existem no
// CHECK da tabela, mas liquidação fica fora deste serviço.
const (
	BetPending   = "PENDING"
	BetCancelled = "CANCELLED"
	BetRefunded  = "REFUNDED"
)

// Tipos de lançamento no ledger
const (
	TxStakeDebit = "STAKE_DEBIT"
	TxDeposit    = "DEPOSIT"
)

// Origem gravada em metadata.transaction_source
const SourceBetting = "betting"

// Wallet é a linha travada durante a aposta. O saldo só existe cifrado aqui.
type Wallet struct {
	ID        string
	UserID    string
	Balance   balance.Sealed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bet é o modelo persistido no Postgres.
type Bet struct {
	ID           string
	UserID       string
	EventID      string
	Market       string
	Selection    string
	Odds         decimal.Decimal
	Stake        decimal.Decimal
	PotentialWin decimal.Decimal
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Metadata vai para a coluna JSONB dos lançamentos
type Metadata struct {
	BetID             string `json:"bet_id,omitempty"`
	EventID           string `json:"event_id,omitempty"`
	TransactionSource string `json:"transaction_source"`
	ExternalRef       string `json:"external_ref,omitempty"`
}

// Transaction é um lançamento imutável do ledger da carteira.
// Seq dá a ordem de criação usada na reconciliação.
type Transaction struct {
	ID            string
	Seq           int64
	UserID        string
	WalletID      string
	Type          string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	Metadata      Metadata
	FraudFlagged  bool
	CreatedAt     time.Time
}

// FraudAlert é o registro revisável gerado pelo monitor
type FraudAlert struct {
	ID        string
	BetID     string
	UserID    string
	Rule      string
	Detail    string
	Observed  decimal.Decimal
	Threshold decimal.Decimal
	CreatedAt time.Time
}
