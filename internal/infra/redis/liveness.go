package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Liveness marks active rounds in Redis so operational probes can tell a
// quiet room from a stuck one. Stored as: SET room:{id}:live {unix ms} EX ttl
type Liveness struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLiveness(client *redis.Client, ttl time.Duration) *Liveness {
	return &Liveness{client: client, ttl: ttl}
}

func (l *Liveness) Touch(roomID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l.client.Set(ctx, l.key(roomID), time.Now().UnixMilli(), l.ttl)
}

func (l *Liveness) Clear(roomID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l.client.Del(ctx, l.key(roomID))
}

// LastTouch reports the most recent round transition, or false when the
// room has no live marker.
func (l *Liveness) LastTouch(ctx context.Context, roomID int64) (time.Time, bool) {
	ms, err := l.client.Get(ctx, l.key(roomID)).Int64()
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (l *Liveness) key(roomID int64) string {
	return fmt.Sprintf("room:%d:live", roomID)
}
