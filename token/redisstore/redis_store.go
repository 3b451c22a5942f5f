package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/redis/go-redis/v9"
)

var _ token.Repo = (*Store)(nil)

const (
	keyPrefix = "docshare:session:"

	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// Store keeps the pair of one profile in a single Redis hash, so both entries
// are written and deleted together.
type Store struct {
	client *redis.Client
	key    string
}

// New wraps an existing client. profile selects the hash key.
func New(client *redis.Client, profile string) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore New] client is required")
	}
	if profile == "" {
		return nil, errors.New("[redisstore New] profile is required")
	}
	return &Store{client: client, key: keyPrefix + profile}, nil
}

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[redisstore NewClient] invalid URL: %w", err)
	}

	// a CLI needs one connection at a time
	options.PoolSize = 2
	options.MinIdleConns = 0
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[redisstore NewClient] ping failed: %w", err)
	}
	return client, nil
}

// Key returns the hash key used for this profile.
func (s *Store) Key() string {
	return s.key
}

func (s *Store) Load(ctx context.Context) (token.Pair, error) {
	values, err := s.client.HMGet(ctx, s.key, token.AccessTokenKey, token.RefreshTokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return token.Pair{}, nil
		}
		return token.Pair{}, fmt.Errorf("[redisstore Load] %w", err)
	}

	pair := token.Pair{
		Access:  stringValue(values, 0),
		Refresh: stringValue(values, 1),
	}
	if !pair.Complete() {
		if !pair.IsZero() {
			if err := s.Clear(ctx); err != nil {
				return token.Pair{}, err
			}
		}
		return token.Pair{}, nil
	}
	return pair, nil
}

func (s *Store) Save(ctx context.Context, pair token.Pair) error {
	if !pair.Complete() {
		return errors.New("[redisstore Save] incomplete token pair")
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, token.AccessTokenKey, pair.Access, token.RefreshTokenKey, pair.Refresh)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstore Save] %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("[redisstore Clear] %w", err)
	}
	return nil
}

func stringValue(values []interface{}, i int) string {
	if i >= len(values) || values[i] == nil {
		return ""
	}
	s, _ := values[i].(string)
	return s
}
