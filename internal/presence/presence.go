// Package presence tracks which users currently hold a live websocket
// connection, backed by redis keys with a TTL so a crashed server never
// leaves anyone online forever.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyTTL = 90 * time.Second

type Tracker struct {
	redis *redis.Client
}

func NewTracker(redisClient *redis.Client) *Tracker {
	return &Tracker{redis: redisClient}
}

func key(userID int) string {
	return fmt.Sprintf("presence:%d", userID)
}

// Online marks a user as connected. Called on every new connection and on
// each heartbeat, so the TTL keeps sliding while any connection is alive.
func (t *Tracker) Online(ctx context.Context, userID int) {
	if err := t.redis.Set(ctx, key(userID), 1, keyTTL).Err(); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("presence: failed to mark online")
	}
}

// Offline clears the flag once a user's last connection is gone.
func (t *Tracker) Offline(ctx context.Context, userID int) {
	if err := t.redis.Del(ctx, key(userID)).Err(); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("presence: failed to mark offline")
	}
}

// IsOnline degrades to false when redis is unreachable; presence is a hint,
// never something a request should fail over.
func (t *Tracker) IsOnline(ctx context.Context, userID int) bool {
	n, err := t.redis.Exists(ctx, key(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}
