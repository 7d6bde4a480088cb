// Package cache holds the short-TTL redis cache for customer delivery
// status snapshots. The portal status endpoint and every stream tick of
// every connected client hit the same read path; without the cache each
// tick is three queries per client.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/config"
	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

// snapshotTTL bounds staleness between a queue mutation and the next read
// when the explicit invalidation is missed.
const snapshotTTL = 2 * time.Second

// StatusCache caches snapshots per sale in a redis hash keyed by customer.
// A nil client disables the cache; every method degrades to a miss or a
// no-op, so redis being down never breaks the portal.
type StatusCache struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to redis. When no host is configured or the ping fails the
// returned cache is disabled rather than fatal.
func New(cfg *config.Config, logger *zap.Logger) *StatusCache {
	if cfg.Redis.Host == "" {
		logger.Info("redis not configured, snapshot cache disabled")
		return &StatusCache{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, snapshot cache disabled", zap.Error(err))
		client.Close()
		return &StatusCache{logger: logger}
	}
	return &StatusCache{client: client, logger: logger}
}

func saleKey(saleID int) string {
	return "delivery_status:" + strconv.Itoa(saleID)
}

func (c *StatusCache) GetDeliveryStatus(ctx context.Context, saleID, customerID int) (*models.DeliveryStatusSnapshot, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.HGet(ctx, saleKey(saleID), strconv.Itoa(customerID)).Bytes()
	if err != nil {
		return nil, false
	}
	var snap models.DeliveryStatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

func (c *StatusCache) SetDeliveryStatus(ctx context.Context, saleID, customerID int, snap *models.DeliveryStatusSnapshot) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	key := saleKey(saleID)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, strconv.Itoa(customerID), data)
	pipe.Expire(ctx, key, snapshotTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("snapshot cache write failed", zap.Error(err))
	}
}

func (c *StatusCache) InvalidateSale(ctx context.Context, saleID int) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, saleKey(saleID)).Err(); err != nil {
		c.logger.Debug("snapshot cache invalidation failed",
			zap.Int("sale_id", saleID), zap.Error(err))
	}
}

// Enabled reports whether a redis connection backs the cache.
func (c *StatusCache) Enabled() bool {
	return c.client != nil
}

// Ping probes the redis connection. A disabled cache reports healthy: it
// is a deliberate configuration, not a fault.
func (c *StatusCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the redis connection, if any.
func (c *StatusCache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
