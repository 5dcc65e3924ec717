// Package cache implements the entity cache that owns the authoritative
// in-memory copy of every synced entity, keyed by (kind, id). All writes
// funnel through the optimistic mutator or the change stream router; view
// models only read and subscribe.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
)

// DefaultProfileCacheSize bounds the process-lifetime user summary cache.
const DefaultProfileCacheSize = 512

// entry is one cached entity. Local writes are last-write-wins in bucket
// mutex order; remoteRev records the last applied push revision so redelivery
// is a no-op. A nil value marks an entry pinned by a subscriber before
// anything was loaded.
type entry struct {
	value     any
	remoteRev uint64
}

// bucket holds one kind's entries behind its own mutex, per the single
// mutex-per-kind locking rule. The singleflight group lives with the bucket
// so fetch-or-join keeps its dedup guarantee per (kind, id).
type bucket struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[string]map[int64]func(any)
	flight  singleflight.Group
}

// Options configures an EntityCache.
type Options struct {
	ProfileCacheSize int
	Logger           *slog.Logger
}

// EntityCache is the keyed store shared by every component of the sync core.
type EntityCache struct {
	mu      sync.RWMutex
	buckets map[models.Kind]*bucket

	subSeq atomic.Int64

	profiles      *lru.Cache[string, models.UserSummary]
	profileFlight singleflight.Group

	log *slog.Logger
}

// New builds an EntityCache.
func New(opts Options) *EntityCache {
	size := opts.ProfileCacheSize
	if size <= 0 {
		size = DefaultProfileCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	profiles, _ := lru.New[string, models.UserSummary](size)
	return &EntityCache{
		buckets:  make(map[models.Kind]*bucket),
		profiles: profiles,
		log:      logger,
	}
}

func (c *EntityCache) bucket(kind models.Kind) *bucket {
	c.mu.RLock()
	b, ok := c.buckets[kind]
	c.mu.RUnlock()
	if ok {
		return b
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok = c.buckets[kind]; ok {
		return b
	}
	b = &bucket{
		entries: make(map[string]*entry),
		subs:    make(map[string]map[int64]func(any)),
	}
	c.buckets[kind] = b
	return b
}

// Get returns the last-known value for (kind, id), if any.
func (c *EntityCache) Get(kind models.Kind, id string) (any, bool) {
	b := c.bucket(kind)
	b.mu.Lock()
	e, ok := b.entries[id]
	b.mu.Unlock()
	if !ok || e.value == nil {
		observability.CacheMisses.WithLabelValues(string(kind)).Inc()
		return nil, false
	}
	observability.CacheHits.WithLabelValues(string(kind)).Inc()
	return e.value, true
}

// Lookup is a typed Get.
func Lookup[T any](c *EntityCache, kind models.Kind, id string) (T, bool) {
	v, ok := c.Get(kind, id)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Put stores a locally-produced value under (kind, id) and notifies
// subscribers. Local writes always win over the previous local state; the
// bucket mutex, not wall clock, orders them.
func (c *EntityCache) Put(kind models.Kind, id string, value any) {
	b := c.bucket(kind)
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		e = &entry{}
		b.entries[id] = e
	}
	e.value = value
	callbacks := b.callbacksLocked(id)
	b.mu.Unlock()

	notify(callbacks, value)
}

// ApplyRemote stores a push-delivered value stamped with the scope's remote
// revision. Re-applying an already-applied (id, revision) pair is a no-op;
// the return value reports whether the cache changed. An authoritative value
// always overwrites optimistic local state.
func (c *EntityCache) ApplyRemote(kind models.Kind, id string, value any, remoteRev uint64) bool {
	b := c.bucket(kind)
	b.mu.Lock()
	e, ok := b.entries[id]
	if ok && remoteRev != 0 && remoteRev <= e.remoteRev {
		b.mu.Unlock()
		return false
	}
	if !ok {
		e = &entry{}
		b.entries[id] = e
	}
	e.value = value
	e.remoteRev = remoteRev
	callbacks := b.callbacksLocked(id)
	b.mu.Unlock()

	notify(callbacks, value)
	return true
}

// Delete removes (kind, id) and notifies subscribers with a nil value. Used
// for push-delivered deletes and for discarding failed optimistic appends.
func (c *EntityCache) Delete(kind models.Kind, id string) {
	b := c.bucket(kind)
	b.mu.Lock()
	_, existed := b.entries[id]
	delete(b.entries, id)
	callbacks := b.callbacksLocked(id)
	b.mu.Unlock()

	if existed {
		notify(callbacks, nil)
	}
}

// Subscribe registers a callback for every change to (kind, id). The
// returned function unsubscribes; when the last subscriber leaves, the entry
// is evicted.
func (c *EntityCache) Subscribe(kind models.Kind, id string, fn func(any)) func() {
	b := c.bucket(kind)
	sub := c.subSeq.Add(1)

	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[int64]func(any))
	}
	b.subs[id][sub] = fn
	if _, ok := b.entries[id]; !ok {
		b.entries[id] = &entry{}
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[id], sub)
			// Reference-counted eviction: the entry lives as long as at
			// least one subscriber still references the key.
			if len(b.subs[id]) == 0 {
				delete(b.subs, id)
				if _, ok := b.entries[id]; ok {
					delete(b.entries, id)
					observability.CacheEvictions.WithLabelValues(string(kind)).Inc()
				}
			}
			b.mu.Unlock()
		})
	}
}

func (b *bucket) callbacksLocked(id string) []func(any) {
	subs := b.subs[id]
	if len(subs) == 0 {
		return nil
	}
	out := make([]func(any), 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

// Callbacks run outside the bucket mutex so a subscriber may read the cache.
func notify(callbacks []func(any), value any) {
	for _, fn := range callbacks {
		fn(value)
	}
}
