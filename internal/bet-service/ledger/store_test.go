package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/balance"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/catalog"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/limits"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
)

// memStore imita o Postgres: lock exclusivo por carteira e escrita só no commit
type memStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	wallets map[string]repo.Wallet // por user
	limits  map[string]*limits.Limits
	bets    []repo.Bet
	entries []repo.Transaction
	seq     int64

	failInsertTransaction error
}

func newMemStore() *memStore {
	return &memStore{
		locks:   map[string]*sync.Mutex{},
		wallets: map[string]repo.Wallet{},
		limits:  map[string]*limits.Limits{},
	}
}

func (s *memStore) putWallet(userID string, sealed balance.Sealed) repo.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := repo.Wallet{ID: "w-" + userID, UserID: userID, Balance: sealed}
	s.wallets[userID] = w
	return w
}

func (s *memStore) wallet(userID string) repo.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID]
}

func (s *memStore) committedBets() []repo.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repo.Bet(nil), s.bets...)
}

func (s *memStore) committedEntries() []repo.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repo.Transaction(nil), s.entries...)
}

func (s *memStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *memStore) InTx(ctx context.Context, fn func(repo.Tx) error) error {
	tx := &memTx{s: s, balances: map[string]balance.Sealed{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for walletID, sealed := range tx.balances {
		for u, w := range s.wallets {
			if w.ID == walletID {
				w.Balance = sealed
				s.wallets[u] = w
			}
		}
	}
	s.bets = append(s.bets, tx.bets...)
	for _, e := range tx.entries {
		s.seq++
		e.Seq = s.seq
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *memStore) GetBet(_ context.Context, betID, userID string) (*repo.Bet, error) {
	for _, b := range s.committedBets() {
		if b.ID == betID && b.UserID == userID {
			return &b, nil
		}
	}
	return nil, repo.ErrBetNotFound
}

func (s *memStore) ListBets(_ context.Context, userID string, limit, offset int) ([]repo.Bet, error) {
	var mine []repo.Bet
	for _, b := range s.committedBets() {
		if b.UserID == userID {
			mine = append(mine, b)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	if offset >= len(mine) {
		return []repo.Bet{}, nil
	}
	mine = mine[offset:]
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

type memTx struct {
	s        *memStore
	held     []*sync.Mutex
	balances map[string]balance.Sealed
	bets     []repo.Bet
	entries  []repo.Transaction
}

func (t *memTx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

func (t *memTx) LockWallet(_ context.Context, userID string) (*repo.Wallet, error) {
	l := t.s.userLock(userID)
	l.Lock()
	t.held = append(t.held, l)

	t.s.mu.Lock()
	w, ok := t.s.wallets[userID]
	t.s.mu.Unlock()
	if !ok {
		return nil, repo.ErrWalletNotFound
	}
	if sealed, ok := t.balances[w.ID]; ok {
		w.Balance = sealed
	}
	return &w, nil
}

func (t *memTx) GetLimits(_ context.Context, userID string) (*limits.Limits, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.limits[userID], nil
}

func (t *memTx) StakedSince(_ context.Context, userID string, since time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, b := range append(t.s.committedBets(), t.bets...) {
		if b.UserID != userID || b.CreatedAt.Before(since) {
			continue
		}
		if b.Status == repo.BetCancelled || b.Status == repo.BetRefunded {
			continue
		}
		sum = sum.Add(b.Stake)
	}
	return sum, nil
}

func (t *memTx) InsertBet(_ context.Context, b *repo.Bet) error {
	t.bets = append(t.bets, *b)
	return nil
}

func (t *memTx) ReplaceBalance(_ context.Context, walletID string, s balance.Sealed) error {
	t.balances[walletID] = s
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *repo.Transaction) error {
	if t.s.failInsertTransaction != nil {
		return t.s.failInsertTransaction
	}
	t.entries = append(t.entries, *tr)
	return nil
}

// memEvents é o colaborador de eventos
type memEvents map[string]*catalog.Event

func (m memEvents) GetEvent(_ context.Context, id string) (*catalog.Event, error) {
	ev, ok := m[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return ev, nil
}

// recordingNotifier guarda as apostas notificadas
type recordingNotifier struct {
	mu  sync.Mutex
	got []*Placement
}

func (r *recordingNotifier) BetCommitted(_ context.Context, p *Placement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, p)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}
