package cache

import (
	"context"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
)

// FetchOrJoin returns the cached value for (kind, id) if present; otherwise
// it runs loader, deduplicating against any load already in flight for the
// same key. Every joined caller receives the same result. A successful load
// populates the cache and notifies subscribers; a failed one stores nothing,
// so the next call retries cleanly.
func (c *EntityCache) FetchOrJoin(ctx context.Context, kind models.Kind, id string, loader func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(kind, id); ok {
		return v, nil
	}

	b := c.bucket(kind)
	v, err, shared := b.flight.Do(id, func() (any, error) {
		// Re-check under the flight: a caller that missed the cache may
		// enter here after a concurrent load already populated it.
		if v, ok := c.Get(kind, id); ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(kind, id, v)
		return v, nil
	})
	if shared {
		observability.FetchJoins.WithLabelValues(string(kind)).Inc()
	}
	if err != nil {
		c.log.Warn("entity load failed", "kind", string(kind), "id", id, "error", err)
		return nil, err
	}
	return v, nil
}

// Profile returns the cached user summary for id, if any. Summaries are kept
// for the process lifetime in an LRU so repeated renders never refetch.
func (c *EntityCache) Profile(id string) (models.UserSummary, bool) {
	p, ok := c.profiles.Get(id)
	if ok {
		observability.CacheHits.WithLabelValues(string(models.KindUser)).Inc()
	} else {
		observability.CacheMisses.WithLabelValues(string(models.KindUser)).Inc()
	}
	return p, ok
}

// PutProfile stores a user summary.
func (c *EntityCache) PutProfile(p models.UserSummary) {
	c.profiles.Add(p.ID, p)
}

// FetchProfile is FetchOrJoin for the profile LRU.
func (c *EntityCache) FetchProfile(ctx context.Context, id string, loader func(ctx context.Context) (models.UserSummary, error)) (models.UserSummary, error) {
	if p, ok := c.Profile(id); ok {
		return p, nil
	}
	v, err, shared := c.profileFlight.Do(id, func() (any, error) {
		if p, ok := c.Profile(id); ok {
			return p, nil
		}
		p, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.profiles.Add(p.ID, p)
		return p, nil
	})
	if shared {
		observability.FetchJoins.WithLabelValues(string(models.KindUser)).Inc()
	}
	if err != nil {
		return models.UserSummary{}, err
	}
	return v.(models.UserSummary), nil
}
