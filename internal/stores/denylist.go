package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naviriti/authd/internal"
)

var ErrDenylistUnavailable = errors.New("denylist unavailable")

// Denylist is the revoked-token set. Entries carry the token's own expiry
// as their TTL, so Redis prunes them exactly when the token would stop
// verifying anyway; pruning is a space optimization, never a correctness
// concern.
type Denylist struct {
	redis  redis.UniversalClient
	prefix string
}

func NewDenylist(redisClient redis.UniversalClient, prefix string) *Denylist {
	if prefix == "" {
		prefix = "authd"
	}
	return &Denylist{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (d *Denylist) key(token string) string {
	return d.prefix + ":deny:" + internal.DigestToken(token)
}

// Add revokes a token until expiresAt. A token already past its expiry is
// a no-op: it cannot verify anymore, so there is nothing to deny.
func (d *Denylist) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, d.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDenylistUnavailable, err)
	}
	return nil
}

// Contains reports whether the exact token string has been revoked.
func (d *Denylist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := d.redis.Exists(ctx, d.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDenylistUnavailable, err)
	}
	return n > 0, nil
}
