// Package cache holds the Redis read-through cache for active-season info.
// GetActiveSeasonInfo is the hottest read in the system (every registration
// and most UI polls hit it); a short TTL keeps capacity numbers fresh enough
// while shedding load from the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"namemint/internal/season/models"
)

const (
	activeInfoKey = "season:active:info"
	activeInfoTTL = 5 * time.Second
)

// ActiveInfo caches the ActiveSeasonInfo read model.
type ActiveInfo struct {
	client *redis.Client
}

func NewActiveInfo(client *redis.Client) *ActiveInfo {
	return &ActiveInfo{client: client}
}

// Get returns the cached info, or (nil, nil) on a miss. Cache errors degrade
// to a miss; the store remains the source of truth.
func (c *ActiveInfo) Get(ctx context.Context) (*models.ActiveSeasonInfo, error) {
	payload, err := c.client.Get(ctx, activeInfoKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info models.ActiveSeasonInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Set stores the info with the fixed TTL.
func (c *ActiveInfo) Set(ctx context.Context, info *models.ActiveSeasonInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeInfoKey, payload, activeInfoTTL).Err()
}

// Invalidate drops the cached entry. Called on every season mutation and on
// every successful registration (capacity changed).
func (c *ActiveInfo) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, activeInfoKey).Err()
}
