package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"tryout-service/internal/domain"
	"tryout-service/internal/logger"
	"tryout-service/internal/metrics"
)

// TryoutLoader fetches a tryout with its questions from a backing store.
type TryoutLoader interface {
	LoadTryout(ctx context.Context, tryoutID string) (domain.Tryout, error)
}

// CatalogRepository caches whole tryouts in Redis as JSON and falls back to a loader on miss.
// Stored as: SET tryout:{tryoutID}:catalog {json} EX ttl
type CatalogRepository struct {
	client  *redis.Client
	loader  TryoutLoader
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewCatalogRepository(client *redis.Client, loader TryoutLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    logger.Component("redis-catalog"),
	}
}

// WithMetrics counts backing store loads.
func (r *CatalogRepository) WithMetrics(m *metrics.Metrics) *CatalogRepository {
	r.metrics = m
	return r
}

func (r *CatalogRepository) GetTryout(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	if t, ok := r.cached(ctx, tryoutID); ok {
		return t, nil
	}

	result, err, _ := r.sf.Do(tryoutID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if t, ok := r.cached(ctx, tryoutID); ok {
			return t, nil
		}

		t, err := r.loader.LoadTryout(ctx, tryoutID)
		r.metrics.CatalogLoad("redis_cache", err)
		if err != nil {
			return domain.Tryout{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			data, err := json.Marshal(t)
			if err == nil {
				err = r.client.Set(ctx, r.key(tryoutID), data, ttl).Err()
			}
			if err != nil {
				r.log.Warn().Err(err).Str("tryout", tryoutID).Msg("cache tryout")
			}
		}
		return t, nil
	})
	if err != nil {
		return domain.Tryout{}, err
	}
	return result.(domain.Tryout), nil
}

// Invalidate removes the cached copy of a tryout.
func (r *CatalogRepository) Invalidate(ctx context.Context, tryoutID string) error {
	r.sf.Forget(tryoutID)
	if err := r.client.Del(ctx, r.key(tryoutID)).Err(); err != nil {
		return fmt.Errorf("invalidate tryout %s: %w", tryoutID, err)
	}
	return nil
}

// cached reads the JSON copy. A Redis failure or a corrupt entry is treated as a miss.
func (r *CatalogRepository) cached(ctx context.Context, tryoutID string) (domain.Tryout, bool) {
	data, err := r.client.Get(ctx, r.key(tryoutID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("tryout", tryoutID).Msg("read cached tryout")
		}
		return domain.Tryout{}, false
	}
	var t domain.Tryout
	if err := json.Unmarshal(data, &t); err != nil {
		r.log.Warn().Err(err).Str("tryout", tryoutID).Msg("decode cached tryout")
		return domain.Tryout{}, false
	}
	return t, true
}

func (r *CatalogRepository) key(tryoutID string) string {
	return "tryout:" + tryoutID + ":catalog"
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
