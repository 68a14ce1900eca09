package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
)

// Store is a byte-oriented key value backend with expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Key joins query key parts, e.g. Key("recipes", "search", params, "0").
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

// QueryClient caches API reads under hierarchical keys. Concurrent misses
// for the same key share one fetch. Store failures degrade to a fetch.
// A fill that overlaps an Invalidate of its key never reaches the store.
type QueryClient struct {
	store     Store
	staleTime time.Duration
	group     singleflight.Group
	logger    *zap.Logger
	metrics   *monitoring.MetricsCollector
	tracing   *monitoring.TracingProvider

	mu    sync.Mutex
	fills map[string]*fill
}

// fill tracks one in-flight fetch for a key
type fill struct {
	stale bool
}

// NewQueryClient creates a query client. metrics may be nil.
func NewQueryClient(store Store, staleTime time.Duration, logger *zap.Logger, metrics *monitoring.MetricsCollector) *QueryClient {
	if staleTime <= 0 {
		staleTime = 5 * time.Minute
	}
	return &QueryClient{
		store:     store,
		staleTime: staleTime,
		logger:    logger,
		metrics:   metrics,
		fills:     make(map[string]*fill),
	}
}

// WithTracing records a span around every fetch
func (qc *QueryClient) WithTracing(tp *monitoring.TracingProvider) *QueryClient {
	qc.tracing = tp
	return qc
}

// Query returns the cached value for key or fills it with fetch. Failed
// fetches are not cached.
func Query[T any](ctx context.Context, qc *QueryClient, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, ok, err := qc.store.Get(ctx, key)
	if err != nil {
		qc.record("get", "error")
		qc.logger.Warn("Query cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			qc.record("get", "hit")
			return value, nil
		}
		qc.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}
	qc.record("get", "miss")

	raw, err, _ := qc.group.Do(key, func() (interface{}, error) {
		f := qc.beginFill(key)
		defer qc.endFill(key, f)

		fctx := ctx
		if qc.tracing != nil {
			var span trace.Span
			fctx, span = qc.tracing.StartCacheSpan(ctx, "fill", key)
			defer span.End()
		}
		value, err := fetch(fctx)
		if err != nil {
			if qc.tracing != nil {
				qc.tracing.RecordError(fctx, err)
			}
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		qc.write(ctx, key, encoded, f)
		return encoded, nil
	})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(raw.([]byte), &value); err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return value, nil
}

// SetQueryData replaces the cached value for key
func SetQueryData[T any](ctx context.Context, qc *QueryClient, key string, value T) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return qc.store.Set(ctx, key, encoded, qc.staleTime)
}

// Invalidate drops key and every key below it, so invalidating
// "recipes/search" also drops "recipes/search/<params>/12". Fills already
// running for those keys are detached: their results are returned to the
// callers waiting on them but are not cached, and later misses fetch again.
func (qc *QueryClient) Invalidate(ctx context.Context, key string) error {
	qc.mu.Lock()
	for k, f := range qc.fills {
		if k == key || strings.HasPrefix(k, key+"/") {
			f.stale = true
			qc.group.Forget(k)
		}
	}
	qc.mu.Unlock()

	if err := qc.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	n, err := qc.store.DeletePrefix(ctx, key+"/")
	if err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	qc.record("invalidate", "ok")
	qc.logger.Debug("Query cache invalidated", zap.String("key", key), zap.Int("children", n))
	return nil
}

func (qc *QueryClient) beginFill(key string) *fill {
	f := &fill{}
	qc.mu.Lock()
	qc.fills[key] = f
	qc.mu.Unlock()
	return f
}

func (qc *QueryClient) endFill(key string, f *fill) {
	qc.mu.Lock()
	if qc.fills[key] == f {
		delete(qc.fills, key)
	}
	qc.mu.Unlock()
}

func (qc *QueryClient) isStale(f *fill) bool {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return f.stale
}

// write stores a fill result unless its key was invalidated meanwhile. An
// invalidation landing between the check and the Set is caught by the
// second check, which removes the entry again.
func (qc *QueryClient) write(ctx context.Context, key string, encoded []byte, f *fill) {
	if qc.isStale(f) {
		qc.record("set", "stale")
		qc.logger.Debug("Dropping fill for invalidated key", zap.String("key", key))
		return
	}
	if err := qc.store.Set(ctx, key, encoded, qc.staleTime); err != nil {
		qc.logger.Warn("Query cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if qc.isStale(f) {
		qc.record("set", "stale")
		if err := qc.store.Delete(ctx, key); err != nil {
			qc.logger.Warn("Query cache cleanup failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (qc *QueryClient) record(op, status string) {
	if qc.metrics != nil {
		qc.metrics.CacheOperation(op, status)
	}
}
