package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

const (
	DefaultRedisPrefix = "erpadmin:session:"
	signOutChannel     = "signout"
)

// RedisStore keeps the credential in Redis under a key prefix, so several
// processes on one workstation profile share the same session. It also
// carries a sign-out channel: a process that logs out can tell the others.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

// NewRedisStore wraps an existing client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) keys() []string {
	out := make([]string, len(storeKeys))
	for i, k := range storeKeys {
		out[i] = s.key(k)
	}
	return out
}

func (s *RedisStore) Load(ctx context.Context) (*models.Credential, error) {
	res, err := s.rdb.MGet(ctx, s.keys()...).Result()
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	values := make(map[string]string, len(storeKeys))
	for i, k := range storeKeys {
		if v, ok := res[i].(string); ok {
			values[k] = v
		}
	}

	c, ok := decode(values)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c models.Credential) error {
	values := encode(c)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range storeKeys {
			p.Set(ctx, s.key(k), values[k], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.keys()...).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// PublishSignOut announces a global sign-out to every watcher on the same
// prefix.
func (s *RedisStore) PublishSignOut(ctx context.Context, reason string) error {
	if err := s.rdb.Publish(ctx, s.key(signOutChannel), reason).Err(); err != nil {
		return fmt.Errorf("publish sign-out: %w", err)
	}
	return nil
}

// WatchSignOut blocks until ctx ends, calling fn with the reason of every
// sign-out published on this prefix.
func (s *RedisStore) WatchSignOut(ctx context.Context, log logging.Logger, fn func(ctx context.Context, reason string)) error {
	sub := s.rdb.Subscribe(ctx, s.key(signOutChannel))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return fmt.Errorf("subscribe sign-out: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			log.Info(ctx, "sign-out received", "reason", msg.Payload)
			fn(ctx, msg.Payload)
		}
	}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
