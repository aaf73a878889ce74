// Package audit verifica a cadeia de saldos do ledger de cada carteira.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
)

// ErrBroken indica cadeia quebrada ou saldo atual divergente
var ErrBroken = errors.New("ledger chain broken")

// Store é a leitura necessária para reconciliar
type Store interface {
	GetWallet(ctx context.Context, userID string) (*repo.Wallet, error)
	ListTransactions(ctx context.Context, walletID string) ([]repo.Transaction, error)
	ListWalletUsers(ctx context.Context) ([]string, error)
}

// Mismatch descreve a primeira divergência encontrada
type Mismatch struct {
	Seq      int64 // lançamento onde a divergência aparece (0 = saldo da carteira)
	Expected decimal.Decimal
	Found    decimal.Decimal
	Reason   string
}

type Report struct {
	UserID   string
	WalletID string
	Entries  int
	Balance  decimal.Decimal
	Mismatch *Mismatch
}

func (r Report) OK() bool { return r.Mismatch == nil }

type Reconciler struct {
	store Store
	codec *balance.Codec
	log   *zap.Logger
}

func NewReconciler(s Store, c *balance.Codec, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: s, codec: c, log: log}
}

// Reconcile refaz os lançamentos na ordem de criação e confere a cadeia
// before/after e o saldo atual decifrado. Devolve ErrBroken com o relatório
// preenchido quando algo não fecha.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (Report, error) {
	rep := Report{UserID: userID}

	w, err := r.store.GetWallet(ctx, userID)
	if err != nil {
		return rep, err
	}
	rep.WalletID = w.ID

	current, err := r.codec.Decrypt(w.Balance)
	if err != nil {
		return rep, fmt.Errorf("wallet %s: %w", w.ID, err)
	}
	rep.Balance = current

	entries, err := r.store.ListTransactions(ctx, w.ID)
	if err != nil {
		return rep, err
	}
	rep.Entries = len(entries)

	rep.Mismatch = check(entries, current)
	if rep.Mismatch != nil {
		return rep, fmt.Errorf("%w: wallet %s seq %d: %s", ErrBroken, w.ID, rep.Mismatch.Seq, rep.Mismatch.Reason)
	}
	return rep, nil
}

// ReconcileAll percorre todas as carteiras; continua após falhas individuais
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Report, error) {
	users, err := r.store.ListWalletUsers(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(users))
	var broken int
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := r.Reconcile(ctx, u)
		reports = append(reports, rep)
		if err != nil {
			broken++
			r.log.Error("wallet reconciliation failed",
				zap.String("userId", u),
				zap.String("walletId", rep.WalletID),
				zap.Error(err),
			)
			continue
		}
		r.log.Debug("wallet reconciled",
			zap.String("walletId", rep.WalletID),
			zap.Int("entries", rep.Entries),
		)
	}

	if broken > 0 {
		return reports, fmt.Errorf("%w: %d of %d wallets", ErrBroken, broken, len(users))
	}
	return reports, nil
}

// check valida cada lançamento e o encadeamento com o anterior
func check(entries []repo.Transaction, current decimal.Decimal) *Mismatch {
	// carteira sem lançamentos nasce com saldo zero
	if len(entries) == 0 {
		if !current.IsZero() {
			return &Mismatch{Expected: decimal.Zero, Found: current, Reason: "balance without ledger entries"}
		}
		return nil
	}

	if first := entries[0]; !first.BalanceBefore.IsZero() {
		return &Mismatch{Seq: first.Seq, Expected: decimal.Zero, Found: first.BalanceBefore, Reason: "first entry does not open from zero"}
	}

	for i, e := range entries {
		var want decimal.Decimal
		switch e.Type {
		case repo.TxStakeDebit:
			want = e.BalanceBefore.Sub(e.Amount)
		case repo.TxDeposit:
			want = e.BalanceBefore.Add(e.Amount)
		default:
			return &Mismatch{Seq: e.Seq, Reason: "unknown transaction type " + e.Type}
		}
		if !want.Equal(e.BalanceAfter) {
			return &Mismatch{Seq: e.Seq, Expected: want, Found: e.BalanceAfter, Reason: "entry amount does not match before/after"}
		}
		if e.BalanceAfter.IsNegative() {
			return &Mismatch{Seq: e.Seq, Expected: decimal.Zero, Found: e.BalanceAfter, Reason: "negative balance"}
		}
		if i > 0 && !entries[i-1].BalanceAfter.Equal(e.BalanceBefore) {
			return &Mismatch{Seq: e.Seq, Expected: entries[i-1].BalanceAfter, Found: e.BalanceBefore, Reason: "balance_before differs from previous balance_after"}
		}
	}

	last := entries[len(entries)-1].BalanceAfter
	if !last.Equal(current) {
		return &Mismatch{Expected: last, Found: current, Reason: "wallet balance differs from last entry"}
	}
	return nil
}
