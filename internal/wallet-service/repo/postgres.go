package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
)

// Postgres implementa operações de carteira em banco. O saldo só existe
// cifrado na linha; todo crédito passa pelo codec e gera lançamento.
type Postgres struct {
	db    *sql.DB
	codec *balance.Codec
}

func NewPostgres(db *sql.DB, codec *balance.Codec) *Postgres {
	return &Postgres{db: db, codec: codec}
}

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAmount = errors.New("deposit must be positive with at most 2 decimal places")
)

type metadata struct {
	TransactionSource string `json:"transaction_source"`
	ExternalRef       string `json:"external_ref,omitempty"`
}

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira
// com saldo zero se não existir
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, bal decimal.Decimal, err error) {
	zero, err := p.codec.Encrypt(decimal.Zero)
	if err != nil {
		return "", decimal.Zero, err
	}

	// ON CONFLICT evita corrida entre dois primeiros acessos
	if _, err = p.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, encrypted_balance, encryption_iv)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID, zero.Ciphertext, zero.Nonce); err != nil {
		return "", decimal.Zero, fmt.Errorf("create wallet: %w", err)
	}

	var sealed balance.Sealed
	if err = p.db.QueryRowContext(ctx, `
		SELECT id, encrypted_balance, encryption_iv FROM wallets WHERE user_id=$1`, userID).
		Scan(&walletID, &sealed.Ciphertext, &sealed.Nonce); err != nil {
		return "", decimal.Zero, fmt.Errorf("get wallet: %w", err)
	}

	bal, err = p.codec.Decrypt(sealed)
	if err != nil {
		return walletID, decimal.Zero, err
	}
	return walletID, bal, nil
}

// Deposit credita a carteira sob lock pessimista e registra DEPOSIT no ledger.
// Idempotente por externalRef quando informado.
func (p *Postgres) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (walletID string, newBalance decimal.Decimal, err error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(balance.Scale)) {
		return "", decimal.Zero, ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", decimal.Zero, err
	}
	defer tx.Rollback()

	var sealed balance.Sealed
	err = tx.QueryRowContext(ctx, `
		SELECT id, encrypted_balance, encryption_iv FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&walletID, &sealed.Ciphertext, &sealed.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return "", decimal.Zero, ErrNotFound
	}
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("lock wallet: %w", err)
	}

	current, err := p.codec.Decrypt(sealed)
	if err != nil {
		return walletID, decimal.Zero, err
	}

	// Idempotência: mesmo external_ref devolve o saldo atual sem creditar de novo
	if externalRef != "" {
		var exists string
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM transactions
			WHERE wallet_id=$1 AND transaction_type='DEPOSIT' AND metadata->>'external_ref'=$2`,
			walletID, externalRef).Scan(&exists)
		if err == nil {
			return walletID, current, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return "", decimal.Zero, fmt.Errorf("check deposit ref: %w", err)
		}
	}

	newBalance = current.Add(amount)
	next, err := p.codec.Encrypt(newBalance)
	if err != nil {
		return "", decimal.Zero, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE wallets SET encrypted_balance=$1, encryption_iv=$2, updated_at=NOW() WHERE id=$3`,
		next.Ciphertext, next.Nonce, walletID); err != nil {
		return "", decimal.Zero, fmt.Errorf("replace balance: %w", err)
	}

	meta, _ := json.Marshal(metadata{TransactionSource: "deposit", ExternalRef: externalRef})
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id,user_id,wallet_id,transaction_type,amount,balance_before,balance_after,description,metadata)
		VALUES ($1,$2,$3,'DEPOSIT',$4,$5,$6,$7,$8)`,
		uuid.NewString(), userID, walletID, amount, current, newBalance, "Deposit", meta); err != nil {
		return "", decimal.Zero, fmt.Errorf("insert deposit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", decimal.Zero, err
	}
	return walletID, newBalance, nil
}
