package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRevokerUnavailable wraps backend failures of a Revoker.
	ErrRevokerUnavailable = errors.New("session: revocation backend unavailable")
	// ErrEmptyTokenID is returned when a token id is required but blank.
	ErrEmptyTokenID = errors.New("session: empty token id")
)

const minRevokeTTL = time.Second

// Revoker is a denylist of token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevoker stores revoked token ids as expiring Redis keys, so the list
// never outlives the tokens it names.
type RedisRevoker struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRevoker returns a RedisRevoker writing keys under prefix.
func NewRedisRevoker(client redis.UniversalClient, prefix string) *RedisRevoker {
	return &RedisRevoker{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Revoke denies tokenID until the given instant. Already expired tokens are
// not recorded.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return ErrEmptyTokenID
	}

	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if ttl < minRevokeTTL {
		ttl = minRevokeTTL
	}

	if err := r.redis.Set(ctx, r.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRevokerUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the denylist.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, ErrEmptyTokenID
	}

	n, err := r.redis.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRevokerUnavailable, err)
	}
	return n > 0, nil
}

func (r *RedisRevoker) key(tokenID string) string {
	return r.prefix + "revoked:" + tokenID
}
