package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	seqKeyPrefix      = "stockseq:"
	completeKeyPrefix = "stockfull:"
)

// applyOnceScript applies a delta only if the entry sequence is newer than
// the last one applied for the pair, so replayed or duplicated messages
// never double-count.
var applyOnceScript = redis.NewScript(`
local stockKey = KEYS[1]
local seqKey = KEYS[2]
local location = ARGV[1]
local seq = tonumber(ARGV[2])
local delta = tonumber(ARGV[3])

local last = tonumber(redis.call('HGET', seqKey, location))
if last and seq <= last then
	return 0
end

redis.call('HINCRBY', stockKey, location, delta)
redis.call('HSET', seqKey, location, seq)
return 1
`)

// RedisSnapshotCache keeps per-pair snapshots in Redis hashes, one hash per
// (tenant, variant) with one field per location. Suitable when several
// processes serve reads against the same tenant.
type RedisSnapshotCache struct {
	client   *redis.Client
	tenantID string
}

func NewRedisSnapshotCache(client *redis.Client, tenantID string) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client:   client,
		tenantID: tenantID,
	}
}

func (c *RedisSnapshotCache) stockKey(variantID string) string {
	return stockKeyPrefix + c.tenantID + ":" + variantID
}

func (c *RedisSnapshotCache) seqKey(variantID string) string {
	return seqKeyPrefix + c.tenantID + ":" + variantID
}

func (c *RedisSnapshotCache) completeKey(variantID string) string {
	return completeKeyPrefix + c.tenantID + ":" + variantID
}

func (c *RedisSnapshotCache) Get(ctx context.Context, variantID, locationID string) (int64, bool, error) {
	value, err := c.client.HGet(ctx, c.stockKey(variantID), locationID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (c *RedisSnapshotCache) Apply(ctx context.Context, variantID, locationID string, delta int64) (int64, error) {
	return c.client.HIncrBy(ctx, c.stockKey(variantID), locationID, delta).Result()
}

// ApplyOnce applies the delta only if seq is greater than the last applied
// sequence for the pair. Returns whether the delta was applied.
func (c *RedisSnapshotCache) ApplyOnce(ctx context.Context, variantID, locationID string, seq, delta int64) (bool, error) {
	keys := []string{c.stockKey(variantID), c.seqKey(variantID)}
	applied, err := applyOnceScript.Run(ctx, c.client, keys, locationID, seq, delta).Int()
	if err != nil {
		return false, err
	}
	return applied == 1, nil
}

func (c *RedisSnapshotCache) Put(ctx context.Context, variantID, locationID string, available int64) error {
	return c.client.HSet(ctx, c.stockKey(variantID), locationID, available).Err()
}

func (c *RedisSnapshotCache) VariantTotal(ctx context.Context, variantID string) (int64, bool, error) {
	complete, err := c.client.Exists(ctx, c.completeKey(variantID)).Result()
	if err != nil {
		return 0, false, err
	}
	if complete == 0 {
		return 0, false, nil
	}

	fields, err := c.client.HGetAll(ctx, c.stockKey(variantID)).Result()
	if err != nil {
		return 0, false, err
	}

	var total int64
	for _, raw := range fields {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false, err
		}
		total += value
	}
	return total, true, nil
}

func (c *RedisSnapshotCache) MarkComplete(ctx context.Context, variantID string) error {
	return c.client.Set(ctx, c.completeKey(variantID), 1, 0).Err()
}

func (c *RedisSnapshotCache) Drop(ctx context.Context, variantID, locationID string) error {
	if err := c.client.Del(ctx, c.completeKey(variantID)).Err(); err != nil {
		return err
	}
	if err := c.client.HDel(ctx, c.stockKey(variantID), locationID).Err(); err != nil {
		return err
	}
	return c.client.HDel(ctx, c.seqKey(variantID), locationID).Err()
}
