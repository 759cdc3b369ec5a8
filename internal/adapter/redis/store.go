// Package redis keeps the latest parsed forecast per station in Redis.
// Every call goes through a circuit breaker so a Redis outage degrades the
// lookup endpoint and the pipeline's secondary writes instead of stalling
// them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/taf-data-etl/internal/config"
	"github.com/couchcryptid/taf-data-etl/internal/domain"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
)

const (
	keyPrefix = "taf:latest:"
	minTTL    = time.Minute
)

var (
	// ErrNotFound is returned when no forecast is stored for a station.
	ErrNotFound = errors.New("forecast not found")
	// ErrUnavailable is returned while the circuit breaker rejects calls.
	ErrUnavailable = errors.New("forecast store unavailable")
)

// Client is the subset of the go-redis client the store uses.
type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// NewClient connects to the configured Redis instance.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisTimeout,
		ReadTimeout:  cfg.RedisTimeout,
		WriteTimeout: cfg.RedisTimeout,
	})
}

// Store implements pipeline.ForecastStore.
type Store struct {
	client  Client
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	timeout time.Duration
	maxTTL  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to compute expirations.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithBreakerSettings replaces the default circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(s *Store) { s.breaker = gobreaker.NewCircuitBreaker(st) }
}

// NewStore creates a Store. Each call is bounded by timeout; stored
// forecasts expire when their validity window ends, capped at maxTTL.
func NewStore(client Client, timeout, maxTTL time.Duration, opts ...Option) *Store {
	s := &Store{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-forecast-store",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		clock:   clockwork.NewRealClock(),
		timeout: timeout,
		maxTTL:  maxTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding a station's latest forecast.
func Key(station string) string {
	return keyPrefix + strings.ToUpper(station)
}

// Put stores f as the latest forecast for its station unless the stored
// one was issued later. Redelivered or out-of-order messages therefore
// never replace a newer bulletin.
func (s *Store) Put(ctx context.Context, f domain.Forecast) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal forecast %s: %w", f.ID, err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		key := Key(f.Station)
		newer, err := s.storedIsNewer(ctx, key, f.Issued)
		if err != nil || newer {
			return nil, err
		}
		return nil, s.client.Set(ctx, key, data, s.ttlFor(f)).Err()
	})
	if err != nil {
		return s.wrap("put", f.Station, err)
	}
	return nil
}

// Get returns the stored forecast JSON for station.
func (s *Store) Get(ctx context.Context, station string) ([]byte, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		data, err := s.client.Get(ctx, Key(station)).Bytes()
		if errors.Is(err, goredis.Nil) {
			// A missing key is a healthy answer and must not trip the breaker.
			return []byte(nil), nil
		}
		return data, err
	})
	if err != nil {
		return nil, s.wrap("get", station, err)
	}

	data, _ := res.([]byte)
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.client.Ping(ctx).Err()
	})
	if err != nil {
		return s.wrap("ping", "", err)
	}
	return nil
}

// storedIsNewer reports whether key holds a forecast issued after issued.
// An undecodable stored value is treated as absent and gets overwritten.
func (s *Store) storedIsNewer(ctx context.Context, key string, issued time.Time) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var stored struct {
		Issued time.Time `json:"issued"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return false, nil
	}
	return stored.Issued.After(issued), nil
}

// ttlFor keeps a forecast until its validity window closes.
func (s *Store) ttlFor(f domain.Forecast) time.Duration {
	ttl := f.Effective.End.Sub(s.clock.Now())
	if s.maxTTL > 0 && ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	if ttl < minTTL {
		ttl = minTTL
	}
	return ttl
}

func (s *Store) wrap(op, station string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w: %w", op, station, ErrUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w", op, station, err)
}
