package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/phambaophuc/resizo/internal/models"
	"github.com/redis/go-redis/v9"
)

const KeyPrefix = "img_cache:"

// ResultCache keeps finished single-image transforms in Redis.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache returns a cache; a ttl of zero disables it.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns nil, nil on a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*models.TransformResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var result models.TransformResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("cache decode error: %w", err)
	}
	return &result, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, result *models.TransformResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode error: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// GenerateKey hashes the upload bytes together with every parameter that
// changes the output.
func GenerateKey(data []byte, cfg models.TransformConfig) string {
	hash := sha256.New()
	hash.Write(data)

	hash.Write([]byte("|w=" + optionalInt(cfg.Width)))
	hash.Write([]byte("|h=" + optionalInt(cfg.Height)))
	if cfg.Scale != nil {
		hash.Write([]byte("|s=" + strconv.FormatFloat(*cfg.Scale, 'g', -1, 64)))
	}
	hash.Write([]byte("|f=" + string(cfg.Format)))

	return fmt.Sprintf("%s%x", KeyPrefix, hash.Sum(nil))
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
