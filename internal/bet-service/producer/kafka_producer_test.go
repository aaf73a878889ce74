package producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/ledger"
	"github.com/radieske/sports-bet-ledger/internal/bet-service/repo"
	"github.com/radieske/sports-bet-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
	sent chan struct{}
}

func newMemWriter() *memWriter { return &memWriter{sent: make(chan struct{}, 8)} }

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	w.sent <- struct{}{}
	return nil
}

func TestPublishFraudAlert_KeyedByUser(t *testing.T) {
	w := newMemWriter()
	p := NewKafkaPublisher(nil, w, nil)

	err := p.PublishFraudAlert(context.Background(), events.FraudAlert{AlertID: "a1", UserID: "u1", Rule: "VELOCITY"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "u1", string(w.msgs[0].Key))
	var got events.FraudAlert
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "VELOCITY", got.Rule)
}

func TestPublish_WriterErrorsAreWrapped(t *testing.T) {
	w := newMemWriter()
	w.err = errors.New("leader not available")
	p := NewKafkaPublisher(w, nil, nil)

	err := p.PublishBetPlaced(context.Background(), events.BetPlaced{BetID: "b1"})
	assert.ErrorIs(t, err, w.err)

	err = p.PublishFraudAlert(context.Background(), events.FraudAlert{})
	assert.Error(t, err) // sem writer configurado
}

func TestBetCommitted_PublishesAsync(t *testing.T) {
	w := newMemWriter()
	p := NewKafkaPublisher(w, nil, nil)

	p.BetCommitted(context.Background(), &ledger.Placement{
		Bet: repo.Bet{
			ID: "b1", UserID: "u1", EventID: "e1", Market: "MONEYLINE", Selection: "HOME",
			Stake: decimal.RequireFromString("50"), Odds: decimal.RequireFromString("1.85"),
		},
		WalletID:      "w1",
		TransactionID: "t1",
	})

	select {
	case <-w.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("bet_placed not published")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	var got events.BetPlaced
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "b1", got.BetID)
	assert.Equal(t, "50.00", got.Stake)
	assert.NotZero(t, got.TsUnixMs)
}
