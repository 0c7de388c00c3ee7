package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes read-modify-write cycles on tier records. The storage
// substrate has no multi-key transactions across processes, so every tier
// mutation takes a lock: per-tier for sold-count increments, collection-wide
// for appends.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getLockDuration returns the tier lock TTL from the environment or the default.
func (r *Redis) getLockDuration() time.Duration {
	defaultDuration := 10 * time.Second

	ttlStr := os.Getenv("TIER_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultDuration
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid TIER_LOCK_TTL_SECONDS value '" + ttlStr + "', using default 10 seconds")
		return defaultDuration
	}

	return time.Duration(ttlSec) * time.Second
}

// LockTier locks a single tier record for mutation.
func (r *Redis) LockTier(ctx context.Context, tierID int, token string) (bool, error) {
	key := fmt.Sprintf("tier_lock:%d", tierID)
	return r.Client.SetNX(ctx, key, token, r.getLockDuration()).Result()
}

// UnlockTier releases a tier lock if it is still held by token.
func (r *Redis) UnlockTier(ctx context.Context, tierID int, token string) error {
	key := fmt.Sprintf("tier_lock:%d", tierID)
	return r.unlock(ctx, key, token)
}

// LockTiers locks the whole tier collection. Used by appends, which move the
// tier count as well as write a new record.
func (r *Redis) LockTiers(ctx context.Context, token string) (bool, error) {
	return r.Client.SetNX(ctx, "tier_lock:all", token, r.getLockDuration()).Result()
}

// UnlockTiers releases the collection lock if it is still held by token.
func (r *Redis) UnlockTiers(ctx context.Context, token string) error {
	return r.unlock(ctx, "tier_lock:all", token)
}

// LockKey locks an arbitrary ledger record for a read-modify-write cycle.
// Used for holdings at redemption time and for the income and deposit
// counters, which are contended across tiers and senders.
func (r *Redis) LockKey(ctx context.Context, key, token string) (bool, error) {
	return r.Client.SetNX(ctx, "record_lock:"+key, token, r.getLockDuration()).Result()
}

// UnlockKey releases a record lock if it is still held by token.
func (r *Redis) UnlockKey(ctx context.Context, key, token string) error {
	return r.unlock(ctx, "record_lock:"+key, token)
}

func (r *Redis) unlock(ctx context.Context, key, token string) error {
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// AcquireTier takes the per-tier lock with a bounded exponential backoff.
// Returns an error once the attempts are exhausted.
func (r *Redis) AcquireTier(ctx context.Context, tierID int, token string) error {
	return r.acquire(ctx, token, func() (bool, error) {
		return r.LockTier(ctx, tierID, token)
	})
}

// AcquireTiers takes the collection lock with a bounded exponential backoff.
func (r *Redis) AcquireTiers(ctx context.Context, token string) error {
	return r.acquire(ctx, token, func() (bool, error) {
		return r.LockTiers(ctx, token)
	})
}

// AcquireKey takes a record lock with a bounded exponential backoff.
func (r *Redis) AcquireKey(ctx context.Context, key, token string) error {
	return r.acquire(ctx, token, func() (bool, error) {
		return r.LockKey(ctx, key, token)
	})
}

func (r *Redis) acquire(ctx context.Context, token string, lock func() (bool, error)) error {
	backoff := 20 * time.Millisecond
	const maxAttempts = 6

	for attempt := 0; attempt < maxAttempts; attempt++ {
		ok, err := lock()
		if err != nil {
			return fmt.Errorf("redis lock error: %w", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("lock still held after %d attempts", maxAttempts)
}

// SeenTransfer reports whether a transfer notification ID was already
// applied. Fast-path duplicate screen in front of the durable marker the
// purchase engine writes inside its transaction.
func (r *Redis) SeenTransfer(ctx context.Context, transferID string) (bool, error) {
	key := "transfer_seen:" + transferID
	_, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkTransfer records a transfer notification ID as applied. Called only
// after the ledger mutation committed, so a failed attempt stays retryable.
func (r *Redis) MarkTransfer(ctx context.Context, transferID string) error {
	key := "transfer_seen:" + transferID
	return r.Client.Set(ctx, key, "1", 24*time.Hour).Err()
}
