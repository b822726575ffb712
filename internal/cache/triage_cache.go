package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"socialrisk/internal/model"
)

// TriageCache ranks patients by their latest screening result using a Redis ZSET.
type TriageCache interface {
	Record(ctx context.Context, patientID string, result model.RiskResult) error
	GetTop(ctx context.Context, limit int) ([]TriageEntry, error)
	GetRank(ctx context.Context, patientID string) (int64, error)
	Remove(ctx context.Context, patientID string) error
}

// TriageEntry represents a single ranked patient
type TriageEntry struct {
	PatientID      string `json:"patientId"`
	RiskCategories int    `json:"riskCategories"`
	GatingCount    int    `json:"gatingCount"`
	Rank           int    `json:"rank"`
}

const triageKey = "triage:risk"

// Scores order by number of risk categories first, then gating count.
const triageCategoryWeight = 100

type triageCache struct {
	client *redis.Client
}

// NewTriageCache creates a new triage cache
func NewTriageCache(client *redis.Client) TriageCache {
	return &triageCache{
		client: client,
	}
}

func triageScore(result model.RiskResult) float64 {
	return float64(len(result.RiskCategories)*triageCategoryWeight + result.Overall.Count)
}

func (c *triageCache) Record(ctx context.Context, patientID string, result model.RiskResult) error {
	return c.client.ZAdd(ctx, triageKey, redis.Z{
		Score:  triageScore(result),
		Member: patientID,
	}).Err()
}

func (c *triageCache) GetTop(ctx context.Context, limit int) ([]TriageEntry, error) {
	if limit <= 0 {
		return []TriageEntry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, triageKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("triage top %d: %w", limit, err)
	}

	entries := make([]TriageEntry, len(results))
	for i, z := range results {
		score := int(z.Score)
		entries[i] = TriageEntry{
			PatientID:      z.Member.(string),
			RiskCategories: score / triageCategoryWeight,
			GatingCount:    score % triageCategoryWeight,
			Rank:           i + 1,
		}
	}
	return entries, nil
}

func (c *triageCache) GetRank(ctx context.Context, patientID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, triageKey, patientID).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *triageCache) Remove(ctx context.Context, patientID string) error {
	return c.client.ZRem(ctx, triageKey, patientID).Err()
}
