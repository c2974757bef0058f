package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertGuard claims alert keys with SET NX so that only one replica raises a given
// obligation alert.
type AlertGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertGuard returns redis-backed guard.
func NewAlertGuard(client *redis.Client, ttl time.Duration) *AlertGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AlertGuard{client: client, ttl: ttl}
}

func (g *AlertGuard) key(alertKey string) string {
	return fmt.Sprintf("parking:alerts:%s", alertKey)
}

// Acquire reports whether this caller is the first to claim alertKey.
func (g *AlertGuard) Acquire(ctx context.Context, alertKey string) (bool, error) {
	return g.client.SetNX(ctx, g.key(alertKey), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

