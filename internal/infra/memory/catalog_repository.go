package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tryout-service/internal/domain"
	"tryout-service/internal/metrics"
)

// TryoutLoader fetches a tryout with its questions from a backing store.
type TryoutLoader interface {
	LoadTryout(ctx context.Context, tryoutID string) (domain.Tryout, error)
}

// CatalogRepository caches loaded tryouts with TTL to avoid repeated backing store hits.
type CatalogRepository struct {
	loader  TryoutLoader
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex
	metrics *metrics.Metrics

	mu    sync.RWMutex
	cache map[string]cachedTryout
}

type cachedTryout struct {
	tryout    domain.Tryout
	expiresAt time.Time
}

func NewCatalogRepository(loader TryoutLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTryout),
	}
}

// WithMetrics counts backing store loads.
func (r *CatalogRepository) WithMetrics(m *metrics.Metrics) *CatalogRepository {
	r.metrics = m
	return r
}

func (r *CatalogRepository) GetTryout(ctx context.Context, tryoutID string) (domain.Tryout, error) {
	if t, ok := r.lookup(tryoutID); ok {
		return t, nil
	}

	result, err, _ := r.sf.Do(tryoutID, func() (interface{}, error) {
		if t, ok := r.lookup(tryoutID); ok {
			return t, nil
		}

		t, err := r.loader.LoadTryout(ctx, tryoutID)
		r.metrics.CatalogLoad("memory_cache", err)
		if err != nil {
			return domain.Tryout{}, err
		}

		ttl := r.ttlWithJitter()
		if ttl > 0 {
			r.mu.Lock()
			r.cache[tryoutID] = cachedTryout{
				tryout:    t,
				expiresAt: r.clock().Add(ttl),
			}
			r.mu.Unlock()
		}
		return t, nil
	})
	if err != nil {
		return domain.Tryout{}, err
	}
	return result.(domain.Tryout), nil
}

// Invalidate drops a cached tryout so the next read goes to the loader.
func (r *CatalogRepository) Invalidate(_ context.Context, tryoutID string) error {
	r.mu.Lock()
	delete(r.cache, tryoutID)
	r.mu.Unlock()
	r.sf.Forget(tryoutID)
	return nil
}

func (r *CatalogRepository) lookup(tryoutID string) (domain.Tryout, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[tryoutID]; ok && entry.expiresAt.After(now) {
		return entry.tryout, true
	}
	return domain.Tryout{}, false
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
