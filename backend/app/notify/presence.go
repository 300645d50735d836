package notify

import (
	"context"
	"time"

	"growlink/backend/global"

	"github.com/redis/go-redis/v9"
)

// Presence mirrors device liveness into Redis with a TTL so other
// processes (dashboards, schedulers) can check "is it online right now"
// without touching the store. Optional: a nil client makes every call a
// no-op and the DB last_seen_at stays the source of truth.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	return &Presence{rdb: rdb, ttl: ttl}
}

func (p *Presence) Touch(publicID string) {
	if p == nil || p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rdb.Set(ctx, "device:online:"+publicID, 1, p.ttl).Err(); err != nil {
		global.Logger.Warn().Err(err).Str("device", publicID).Msg("presence touch failed")
	}
}

func (p *Presence) IsOnline(publicID string) bool {
	if p == nil || p.rdb == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := p.rdb.Exists(ctx, "device:online:"+publicID).Result()
	return err == nil && n == 1
}
