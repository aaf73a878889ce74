package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/limits"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrBetNotFound    = errors.New("bet not found")
)

// Tx expõe as operações que rodam sob o lock da carteira.
// Tudo o que é lido aqui enxerga as escritas da mesma transação.
type Tx interface {
	LockWallet(ctx context.Context, userID string) (*Wallet, error)
	GetLimits(ctx context.Context, userID string) (*limits.Limits, error)
	StakedSince(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error)
	InsertBet(ctx context.Context, b *Bet) error
	ReplaceBalance(ctx context.Context, walletID string, s balance.Sealed) error
	InsertTransaction(ctx context.Context, t *Transaction) error
}

// Postgres implementa operações de persistência de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// InTx abre a transação, executa fn e faz commit; qualquer erro desfaz tudo
func (p *Postgres) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct{ tx *sql.Tx }

// LockWallet trava a linha da carteira até o fim da transação
func (t *pgTx) LockWallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, encrypted_balance, encryption_iv, created_at, updated_at
		FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&w.ID, &w.UserID, &w.Balance.Ciphertext, &w.Balance.Nonce, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return &w, nil
}

// GetLimits devolve nil quando o usuário não tem linha em gambling_limits
func (t *pgTx) GetLimits(ctx context.Context, userID string) (*limits.Limits, error) {
	var (
		daily, weekly, monthly, single decimal.NullDecimal
		until                          sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT daily_bet_limit, weekly_bet_limit, monthly_bet_limit, max_single_bet, self_exclusion_until
		FROM gambling_limits WHERE user_id=$1`, userID).
		Scan(&daily, &weekly, &monthly, &single, &until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get limits: %w", err)
	}

	lim := &limits.Limits{
		UserID:  userID,
		Daily:   nullable(daily),
		Weekly:  nullable(weekly),
		Monthly: nullable(monthly),
		Single:  nullable(single),
	}
	if until.Valid {
		u := until.Time
		lim.SelfExclusionUntil = &u
	}
	return lim, nil
}

// StakedSince soma apostas não canceladas/estornadas (pendentes incluídas)
func (t *pgTx) StakedSince(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM bets
		WHERE user_id=$1 AND created_at >= $2 AND status NOT IN ('CANCELLED','REFUNDED')`,
		userID, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("staked since: %w", err)
	}
	return sum, nil
}

func (t *pgTx) InsertBet(ctx context.Context, b *Bet) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bets (id,user_id,event_id,bet_type,selection,odds,amount,potential_win,status,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`,
		b.ID, b.UserID, b.EventID, b.Market, b.Selection, b.Odds, b.Stake, b.PotentialWin, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// ReplaceBalance é o único caminho de escrita do saldo: sempre o par novo
// vindo do codec, nunca valor em claro.
func (t *pgTx) ReplaceBalance(ctx context.Context, walletID string, s balance.Sealed) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE wallets SET encrypted_balance=$1, encryption_iv=$2, updated_at=NOW() WHERE id=$3`,
		s.Ciphertext, s.Nonce, walletID)
	if err != nil {
		return fmt.Errorf("replace balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrWalletNotFound
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *Transaction) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	meta, err := json.Marshal(tr.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id,user_id,wallet_id,transaction_type,amount,balance_before,balance_after,description,metadata,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING seq`,
		tr.ID, tr.UserID, tr.WalletID, tr.Type, tr.Amount, tr.BalanceBefore, tr.BalanceAfter, tr.Description, meta, tr.CreatedAt,
	).Scan(&tr.Seq)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetBet só devolve a aposta para o próprio dono
func (p *Postgres) GetBet(ctx context.Context, betID, userID string) (*Bet, error) {
	if _, err := uuid.Parse(betID); err != nil {
		return nil, ErrBetNotFound // id malformado nunca existe
	}
	row := p.db.QueryRowContext(ctx, `
		SELECT id,user_id,event_id,bet_type,selection,odds,amount,potential_win,status,created_at,updated_at
		FROM bets WHERE id=$1 AND user_id=$2`, betID, userID)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bet: %w", err)
	}
	return b, nil
}

// ListBets pagina as apostas do usuário, mais recentes primeiro
func (p *Postgres) ListBets(ctx context.Context, userID string, limit, offset int) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,user_id,event_id,bet_type,selection,odds,amount,potential_win,status,created_at,updated_at
		FROM bets WHERE user_id=$1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	out := make([]Bet, 0, limit)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetWallet lê a carteira sem lock (auditoria)
func (p *Postgres) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, encrypted_balance, encryption_iv, created_at, updated_at
		FROM wallets WHERE user_id=$1`, userID).
		Scan(&w.ID, &w.UserID, &w.Balance.Ciphertext, &w.Balance.Nonce, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

// ListWalletUsers lista os donos de carteira para o reconciliador
func (p *Postgres) ListWalletUsers(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT user_id FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListTransactions devolve os lançamentos da carteira na ordem de criação
func (p *Postgres) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,seq,user_id,wallet_id,transaction_type,amount,balance_before,balance_after,description,metadata,is_fraud_flagged,created_at
		FROM transactions WHERE wallet_id=$1 ORDER BY seq`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			tr   Transaction
			meta []byte
		)
		if err := rows.Scan(&tr.ID, &tr.Seq, &tr.UserID, &tr.WalletID, &tr.Type, &tr.Amount,
			&tr.BalanceBefore, &tr.BalanceAfter, &tr.Description, &meta, &tr.FraudFlagged, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &tr.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata %s: %w", tr.ID, err)
			}
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// scanner cobre *sql.Row e *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanBet(s scanner) (*Bet, error) {
	var b Bet
	if err := s.Scan(&b.ID, &b.UserID, &b.EventID, &b.Market, &b.Selection, &b.Odds, &b.Stake,
		&b.PotentialWin, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func nullable(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}
