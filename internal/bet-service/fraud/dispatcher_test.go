package fraud

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radieske/sports-bet-ledger/internal/shared/metrics"
	"github.com/radieske/sports-bet-ledger/pkg/contracts/events"
)

// funcInspector adapta uma função ao Inspector
type funcInspector func(ctx context.Context, e events.BetPlaced) ([]Finding, error)

func (f funcInspector) Inspect(ctx context.Context, e events.BetPlaced) ([]Finding, error) {
	return f(ctx, e)
}

func TestDispatcher_ProcessesAndDrainsOnClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	insp := funcInspector(func(_ context.Context, e events.BetPlaced) ([]Finding, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.BetID)
		return nil, nil
	})
	m := metrics.NewFraud(nil)
	d := NewDispatcher(insp, 2, 16, time.Second, zap.NewNop(), m)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.True(t, d.Submit(events.BetPlaced{BetID: id}))
	}
	d.Close()

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, seen)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Inspected.WithLabelValues("clean")))

	// depois do Close não aceita mais nada
	assert.False(t, d.Submit(events.BetPlaced{BetID: "late"}))
	d.Close()
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	insp := funcInspector(func(ctx context.Context, _ events.BetPlaced) ([]Finding, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	})
	m := metrics.NewFraud(nil)
	d := NewDispatcher(insp, 1, 1, time.Minute, zap.NewNop(), m)

	require.True(t, d.Submit(events.BetPlaced{BetID: "busy"}))
	<-started // worker ocupado
	require.True(t, d.Submit(events.BetPlaced{BetID: "queued"}))

	done := make(chan bool)
	go func() { done <- d.Submit(events.BetPlaced{BetID: "dropped"}) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped))

	close(release)
	<-started
	d.Close()
}

func TestDispatcher_TimeoutIsUndetermined(t *testing.T) {
	insp := funcInspector(func(ctx context.Context, _ events.BetPlaced) ([]Finding, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewFraud(nil)
	d := NewDispatcher(insp, 0, 1, 20*time.Millisecond, zap.New(core), m)

	d.Run(events.BetPlaced{BetID: "slow"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inspected.WithLabelValues("undetermined")))
	assert.Equal(t, 1, logs.FilterMessage("fraud inspection timed out").Len())
	d.Close()
}

func TestDispatcher_SwallowsErrorsAndPanics(t *testing.T) {
	calls := 0
	insp := funcInspector(func(context.Context, events.BetPlaced) ([]Finding, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("pg down")
		}
		panic("boom")
	})
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewFraud(nil)
	d := NewDispatcher(insp, 0, 1, time.Second, zap.New(core), m)

	assert.NotPanics(t, func() {
		d.Run(events.BetPlaced{BetID: "x"})
		d.Run(events.BetPlaced{BetID: "y"})
	})

	assert.Equal(t, 1, logs.FilterMessage("fraud inspection failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("fraud inspection panicked").Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Inspected.WithLabelValues("undetermined")))
}

func TestDispatcher_FlaggedOutcome(t *testing.T) {
	insp := funcInspector(func(context.Context, events.BetPlaced) ([]Finding, error) {
		return []Finding{{Rule: RuleVelocity}}, nil
	})
	m := metrics.NewFraud(nil)
	d := NewDispatcher(insp, 0, 1, time.Second, nil, m)

	d.Run(events.BetPlaced{BetID: "f"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inspected.WithLabelValues("flagged")))
}
