package ledger

import (
	"context"
	"time"

	"github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

// Notifier recebe a aposta já commitada. Não pode bloquear nem falhar
// para quem chamou o PlaceBet.
type Notifier interface {
	BetCommitted(ctx context.Context, p *Placement)
}

type NopNotifier struct{}

func (NopNotifier) BetCommitted(context.Context, *Placement) {}

// Notifiers distribui para vários destinos na ordem dada
type Notifiers []Notifier

func (ns Notifiers) BetCommitted(ctx context.Context, p *Placement) {
	for _, n := range ns {
		n.BetCommitted(ctx, p)
	}
}

// BetPlacedEvent é o contrato publicado no tópico bet_placed
func (p *Placement) BetPlacedEvent() events.BetPlaced {
	return events.BetPlaced{
		BetID:         p.Bet.ID,
		UserID:        p.Bet.UserID,
		WalletID:      p.WalletID,
		TransactionID: p.TransactionID,
		EventID:       p.Bet.EventID,
		Market:        p.Bet.Market,
		Selection:     p.Bet.Selection,
		Stake:         p.Bet.Stake.StringFixed(stakeDecimals),
		Odds:          p.Bet.Odds.String(),
		PlacedAt:      p.Bet.CreatedAt,
		TsUnixMs:      time.Now().UnixMilli(),
	}
}
