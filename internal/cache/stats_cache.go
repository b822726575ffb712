package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"socialrisk/internal/model"
)

// StatsCache keeps running totals of screening outcomes in a Redis hash.
type StatsCache interface {
	Increment(ctx context.Context, result model.RiskResult) error
	Get(ctx context.Context) (*ScreeningStats, error)
}

// ScreeningStats summarizes every submission recorded so far
type ScreeningStats struct {
	Submissions int                    `json:"submissions"`
	HighRisk    int                    `json:"highRisk"`
	Screened    map[model.Category]int `json:"screened"`
	AtRisk      map[model.Category]int `json:"atRisk"`
}

const statsKey = "stats:screening"

type statsCache struct {
	client *redis.Client
}

// NewStatsCache creates a new stats cache
func NewStatsCache(client *redis.Client) StatsCache {
	return &statsCache{client: client}
}

// Field helpers
func screenedField(c model.Category) string { return "screened:" + string(c) }
func atRiskField(c model.Category) string   { return "risk:" + string(c) }

func (c *statsCache) Increment(ctx context.Context, result model.RiskResult) error {
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, statsKey, "submissions", 1)
	if result.Overall.IsHighRisk {
		pipe.HIncrBy(ctx, statsKey, "highRisk", 1)
	}
	for cat, verdict := range result.PerCategory {
		pipe.HIncrBy(ctx, statsKey, screenedField(cat), 1)
		if verdict.IsRisk {
			pipe.HIncrBy(ctx, statsKey, atRiskField(cat), 1)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}
	return nil
}

func (c *statsCache) Get(ctx context.Context) (*ScreeningStats, error) {
	raw, err := c.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	stats := &ScreeningStats{
		Screened: make(map[model.Category]int),
		AtRisk:   make(map[model.Category]int),
	}
	stats.Submissions, _ = strconv.Atoi(raw["submissions"])
	stats.HighRisk, _ = strconv.Atoi(raw["highRisk"])
	for _, cat := range model.Categories {
		if n, err := strconv.Atoi(raw[screenedField(cat)]); err == nil {
			stats.Screened[cat] = n
		}
		if n, err := strconv.Atoi(raw[atRiskField(cat)]); err == nil {
			stats.AtRisk[cat] = n
		}
	}
	return stats, nil
}
