package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SendClaim is a short-lived per-registration lock in Redis, taken
// immediately before an email send. The flag check in Postgres skips
// records already marked sent, but two instances racing on redeliveries
// of the same record can both pass that check before either writes the
// flag; the claim narrows that window to the Redis round trip.
//
// The gate is best-effort. When Redis is not configured or unreachable
// the claim is granted and the flag check remains the only defense, which
// is the behavior the flag-only design already accepts.
type SendClaim struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewSendClaim builds the gate. A nil client disables it: every claim is
// granted.
func NewSendClaim(client *redis.Client, logger *slog.Logger) *SendClaim {
	return &SendClaim{
		client: client,
		logger: logger,
		ttl:    5 * time.Minute,
	}
}

// Connect dials Redis from a URL. Kept here rather than in the consumer
// mains so both binaries construct the gate the same way.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func claimKey(registrationID int64) string {
	return fmt.Sprintf("claim:registration:%d", registrationID)
}

// Acquire takes the claim for a registration. False means another
// instance holds it and this delivery should be skipped.
func (c *SendClaim) Acquire(ctx context.Context, registrationID int64) bool {
	if c.client == nil {
		return true
	}

	ok, err := c.client.SetNX(ctx, claimKey(registrationID), 1, c.ttl).Result()
	if err != nil {
		c.logger.Warn("send claim unavailable, proceeding on flag check only",
			"error", err,
			"registration_id", registrationID,
		)
		return true
	}
	return ok
}

// Release drops the claim after a failed send so a future redelivery may
// retry. A successful send keeps the claim until its TTL expires; by then
// the flag write has made it redundant.
func (c *SendClaim) Release(ctx context.Context, registrationID int64) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, claimKey(registrationID)).Err(); err != nil {
		c.logger.Warn("failed to release send claim",
			"error", err,
			"registration_id", registrationID,
		)
	}
}
