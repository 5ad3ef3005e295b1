package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/metrics"
	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/logger"
	"github.com/raceinsight/backend/pkg/utils"
)

// Client caches computed period summaries. Stats are always
// recomputable from race rows, so every cache failure degrades to a
// recompute and is never surfaced to callers.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis stats cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func yearlyKey(startDate, endDate string) string {
	return "stats:yearly:" + utils.PeriodHash(startDate, endDate)
}

// GetYearly returns the cached summary for the period, if any.
func (c *Client) GetYearly(ctx context.Context, startDate, endDate string) (*models.YearlySummary, bool) {
	data, err := c.client.Get(ctx, yearlyKey(startDate, endDate)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Stats cache read failed", zap.Error(err))
		}
		metrics.CacheMisses.WithLabelValues("yearly").Inc()
		return nil, false
	}

	var summary models.YearlySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		logger.Warn("Stats cache entry corrupt, ignoring", zap.Error(err))
		metrics.CacheMisses.WithLabelValues("yearly").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("yearly").Inc()
	return &summary, true
}

// SetYearly stores a computed summary with the configured TTL.
func (c *Client) SetYearly(ctx context.Context, startDate, endDate string, summary models.YearlySummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		logger.Warn("Failed to marshal summary for cache", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, yearlyKey(startDate, endDate), data, c.ttl).Err(); err != nil {
		logger.Warn("Stats cache write failed", zap.Error(err))
	}
}
