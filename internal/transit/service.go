// Package transit turns a selected route into a direction-aware stop list
// annotated with arrival predictions.
package transit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bluele/gcache"

	"busboard.hk/internal/clock"
	"busboard.hk/internal/etabus"
	"busboard.hk/internal/metrics"
	"busboard.hk/internal/models"
	"busboard.hk/internal/retry"
)

// Upstream is the read-only data source. *etabus.Client implements it.
type Upstream interface {
	Routes(ctx context.Context) ([]models.Route, error)
	Route(ctx context.Context, route string, bound models.Bound, serviceType string) (models.Route, error)
	RouteStops(ctx context.Context, route string, bound models.Bound, serviceType string) ([]models.RouteStop, error)
	Stop(ctx context.Context, stopID string) (models.StopInfo, error)
	ETA(ctx context.Context, stopID, route, serviceType string) ([]models.ETARecord, error)
}

// Policies sets the retry budget of each stage.
type Policies struct {
	Catalog retry.Policy
	Probe   retry.Policy
	Stop    retry.Policy
	ETA     retry.Policy
}

// DefaultPolicies retries only the catalog fetch.
func DefaultPolicies() Policies {
	return Policies{
		Catalog: retry.DefaultPolicy(),
		Probe:   retry.Single(),
		Stop:    retry.Single(),
		ETA:     retry.Single(),
	}
}

type Options struct {
	Upstream      Upstream
	Clock         clock.Clock
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Policies      Policies
	CatalogTTL    time.Duration
	MaxConcurrent int
	CacheSize     int
}

// Service runs the resolution stages against an Upstream. It holds no
// selection state and is safe for concurrent use.
type Service struct {
	upstream      Upstream
	clock         clock.Clock
	logger        *slog.Logger
	metrics       *metrics.Metrics
	retrier       *retry.Retrier
	policies      Policies
	cache         gcache.Cache
	catalogTTL    time.Duration
	maxConcurrent int
}

const (
	defaultMaxConcurrent = 16
	defaultCacheSize     = 64
	catalogCacheKey      = "catalog"
)

func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Policies == (Policies{}) {
		opts.Policies = DefaultPolicies()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	m := opts.Metrics
	return &Service{
		upstream: opts.Upstream,
		clock:    opts.Clock,
		logger:   opts.Logger.With(slog.String("component", "transit")),
		metrics:  m,
		retrier: retry.New(opts.Clock, opts.Logger, func(op string, _ int, _ error, _ time.Duration) {
			m.ObserveRetry(op)
		}),
		policies:      opts.Policies,
		cache:         gcache.New(opts.CacheSize).LRU().Clock(opts.Clock).Build(),
		catalogTTL:    opts.CatalogTTL,
		maxConcurrent: opts.MaxConcurrent,
	}
}

// CacheLen reports the number of live cache entries.
func (s *Service) CacheLen() int {
	return s.cache.Len(true)
}

// call runs fn under policy p. Only transport failures are retried; a body
// that arrived but could not be decoded is final.
func call[T any](ctx context.Context, s *Service, operation string, p retry.Policy, fn func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, s.retrier, operation, p, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		var decodeErr *etabus.DecodeError
		if errors.As(err, &decodeErr) {
			return v, retry.Permanent(err)
		}
		return v, err
	})
}

func cacheGet[T any](s *Service, key string) (T, bool) {
	var zero T
	v, err := s.cache.GetIFPresent(key)
	if err != nil {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

func cachePut(s *Service, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	_ = s.cache.SetWithExpire(key, v, ttl)
}
