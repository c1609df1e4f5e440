package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vantage/pkg/errors"
	"vantage/pkg/statement/eval"
)

// VerdictCache stores evaluation results in Redis, keyed by workspace,
// revision and statement. Because the revision is part of the key, bumping
// a workspace's revision orphans every cached verdict for it; expiry takes
// care of the leftovers.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVerdictCache connects to Redis and verifies the connection.
func NewVerdictCache(ctx context.Context, opts *redis.Options, ttl time.Duration) (*VerdictCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping redis")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VerdictCache{client: client, ttl: ttl}, nil
}

// Close releases the underlying connection pool.
func (c *VerdictCache) Close() error {
	return c.client.Close()
}

func verdictKey(workspaceID string, revision int64, statementID string) string {
	return fmt.Sprintf("vantage:verdict:%s:%d:%s", workspaceID, revision, statementID)
}

// Get returns the cached verdict, or ok=false on a miss. Decode failures
// count as misses: the entry is dropped and re-evaluated.
func (c *VerdictCache) Get(ctx context.Context, workspaceID string, revision int64, statementID string) (eval.Result, bool, error) {
	key := verdictKey(workspaceID, revision, statementID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return eval.Result{}, false, nil
	}
	if err != nil {
		return eval.Result{}, false, errors.Wrap(errors.ErrCodeStore, err, "read verdict cache")
	}

	var result eval.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return eval.Result{}, false, nil
	}
	return result, true, nil
}

// Put stores a verdict with the configured TTL.
func (c *VerdictCache) Put(ctx context.Context, workspaceID string, revision int64, result eval.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode verdict")
	}
	key := verdictKey(workspaceID, revision, result.StatementID)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write verdict cache")
	}
	return nil
}
