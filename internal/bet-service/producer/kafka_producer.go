package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/ledger"
	"github.com/radieske/sports-bet-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

// MessageWriter é o subconjunto do kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica bet_placed e fraud_alerts. A chave é o userId para
// manter a ordem por usuário na partição.
type KafkaPublisher struct {
	BetPlaced   MessageWriter
	FraudAlerts MessageWriter
	Timeout     time.Duration
	Log         *zap.Logger
}

func NewKafkaPublisher(betPlaced, fraudAlerts MessageWriter, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{BetPlaced: betPlaced, FraudAlerts: fraudAlerts, Timeout: 2 * time.Second, Log: log}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	return p.write(ctx, p.BetPlaced, e.UserID, e)
}

func (p *KafkaPublisher) PublishFraudAlert(ctx context.Context, a events.FraudAlert) error {
	return p.write(ctx, p.FraudAlerts, a.UserID, a)
}

// BetCommitted implementa ledger.Notifier no modo kafka. Roda fora do
// contexto da requisição e só loga falhas: a aposta já foi commitada.
func (p *KafkaPublisher) BetCommitted(_ context.Context, pl *ledger.Placement) {
	e := pl.BetPlacedEvent()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
		defer cancel()
		if err := p.PublishBetPlaced(ctx, e); err != nil {
			p.Log.Error("publish bet_placed failed", zap.String("betId", e.BetID), zap.Error(err))
		}
	}()
}

func (p *KafkaPublisher) write(ctx context.Context, w MessageWriter, key string, v any) error {
	if w == nil {
		return fmt.Errorf("kafka writer not configured")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b, Time: time.Now()}); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}
