package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedSource é um read-through no Redis na frente de outro Source.
// Serve leituras de exibição; pode devolver dados com até um TTL de atraso,
// então nunca deve alimentar a validação de aposta. TTL <= 0 desliga o cache.
type CachedSource struct {
	R    *redis.Client
	Next Source
	TTL  time.Duration
	Log  *zap.Logger
}

func NewCachedSource(r *redis.Client, next Source, ttl time.Duration, log *zap.Logger) *CachedSource {
	return &CachedSource{R: r, Next: next, TTL: ttl, Log: log}
}

func keyEvent(eventID string) string { return "catalog:event:" + eventID }

// GetEvent tenta o cache; em miss ou erro do Redis cai para a fonte
func (c *CachedSource) GetEvent(ctx context.Context, id string) (*Event, error) {
	if c.TTL <= 0 {
		return c.Next.GetEvent(ctx, id)
	}
	b, err := c.R.Get(ctx, keyEvent(id)).Bytes()
	switch {
	case err == nil:
		var ev Event
		if jerr := json.Unmarshal(b, &ev); jerr == nil {
			return &ev, nil
		}
		c.Log.Warn("event cache decode failed", zap.String("event_id", id))
	case !errors.Is(err, redis.Nil):
		c.Log.Warn("event cache read failed", zap.String("event_id", id), zap.Error(err))
	}

	ev, err := c.Next.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if b, jerr := json.Marshal(ev); jerr == nil {
		if serr := c.R.Set(ctx, keyEvent(id), b, c.TTL).Err(); serr != nil {
			c.Log.Debug("event cache write failed", zap.String("event_id", id), zap.Error(serr))
		}
	}
	return ev, nil
}
