package fraud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bet-ledger/internal/bet-service/ledger"
	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
	"github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

var _ ledger.Notifier = (*Dispatcher)(nil)

// Inspector é o que o worker executa por aposta
type Inspector interface {
	Inspect(ctx context.Context, e events.BetPlaced) ([]Finding, error)
}

// Dispatcher desacopla o monitor do PlaceBet: fila limitada e workers
// próprios, cada inspeção com timeout curto.
type Dispatcher struct {
	insp    Inspector
	tasks   chan events.BetPlaced
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Fraud

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher com workers == 0 não sobe goroutines; só Run é útil nesse caso.
func NewDispatcher(insp Inspector, workers, queue int, timeout time.Duration, log *zap.Logger, m *metrics.Fraud) *Dispatcher {
	if queue <= 0 {
		queue = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewFraud(nil)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := &Dispatcher{
		insp:    insp,
		tasks:   make(chan events.BetPlaced, queue),
		timeout: timeout,
		log:     log,
		metrics: m,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// BetCommitted implementa ledger.Notifier
func (d *Dispatcher) BetCommitted(_ context.Context, p *ledger.Placement) {
	d.Submit(p.BetPlacedEvent())
}

// Submit nunca bloqueia. Fila cheia ou fechada = flag indeterminada.
func (d *Dispatcher) Submit(e events.BetPlaced) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return false
	}
	select {
	case d.tasks <- e:
		return true
	default:
		d.drop(e, "queue full")
		return false
	}
}

// Close para de aceitar e espera a fila drenar
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) drop(e events.BetPlaced, reason string) {
	d.metrics.Dropped.Inc()
	d.metrics.Inspected.WithLabelValues("undetermined").Inc()
	d.log.Warn("fraud inspection dropped",
		zap.String("betId", e.BetID),
		zap.String("userId", e.UserID),
		zap.String("reason", reason),
	)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for e := range d.tasks {
		d.Run(e)
	}
}

// Run inspeciona de forma síncrona com o timeout do dispatcher (consumidor
// Kafka usa direto). Nunca propaga erro nem pânico: a aposta já está commitada.
func (d *Dispatcher) Run(e events.BetPlaced) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.metrics.Errors.WithLabelValues("panic").Inc()
			d.metrics.Inspected.WithLabelValues("undetermined").Inc()
			d.log.Error("fraud inspection panicked",
				zap.String("betId", e.BetID),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	findings, err := d.insp.Inspect(ctx, e)
	d.record(e, findings, err)
}

func (d *Dispatcher) record(e events.BetPlaced, findings []Finding, err error) {
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		d.metrics.Inspected.WithLabelValues("undetermined").Inc()
		d.log.Warn("fraud inspection timed out",
			zap.String("betId", e.BetID),
			zap.Duration("timeout", d.timeout),
		)
	case err != nil:
		d.metrics.Inspected.WithLabelValues("undetermined").Inc()
		d.log.Error("fraud inspection failed",
			zap.String("betId", e.BetID),
			zap.Error(err),
		)
	case len(findings) > 0:
		d.metrics.Inspected.WithLabelValues("flagged").Inc()
	default:
		d.metrics.Inspected.WithLabelValues("clean").Inc()
	}
}
