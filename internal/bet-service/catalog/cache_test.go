package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	ev    *Event
	err   error
	calls int
}

func (s *stubSource) GetEvent(ctx context.Context, id string) (*Event, error) {
	s.calls++
	return s.ev, s.err
}

// Redis inacessível: o cache nunca pode impedir a leitura do evento
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCachedSource_FallsBackWhenRedisDown(t *testing.T) {
	next := &stubSource{ev: &Event{ID: "MATCH_001", Status: StatusUpcoming}}
	c := NewCachedSource(unreachableRedis(), next, time.Second, zap.NewNop())

	ev, err := c.GetEvent(context.Background(), "MATCH_001")
	require.NoError(t, err)
	assert.Equal(t, "MATCH_001", ev.ID)
	assert.Equal(t, 1, next.calls)
}

func TestCachedSource_PropagatesNotFound(t *testing.T) {
	next := &stubSource{err: ErrNotFound}
	c := NewCachedSource(unreachableRedis(), next, time.Second, zap.NewNop())

	_, err := c.GetEvent(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCachedSource_ZeroTTLReadsThrough(t *testing.T) {
	next := &stubSource{ev: &Event{ID: "MATCH_001", Status: StatusUpcoming}}
	c := NewCachedSource(nil, next, 0, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := c.GetEvent(context.Background(), "MATCH_001")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, next.calls)
}
