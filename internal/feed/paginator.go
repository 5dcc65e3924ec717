// Package feed pages through the ranked home feed. Ranking is (likes desc,
// createdAt desc, id asc); rows written before the like-ranking feature have
// no likes field, and a cursor pointing at such a row falls back to
// createdAt-only ordering. The fallback latches until Refresh: flipping back
// on a later liked cursor row would re-deliver rows the other ordering
// already returned.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/cache"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
)

// DefaultPageSize is the fixed feed page size.
const DefaultPageSize = 20

var (
	// ErrLoadInFlight is returned when NextPage is called while a page load
	// for the same paginator is already running.
	ErrLoadInFlight = errors.New("feed: page load already in flight")
	// ErrExhausted is returned once the feed has signalled end-of-feed and
	// until Refresh is called.
	ErrExhausted = errors.New("feed: no further pages until refresh")
)

// Cursor is the opaque paging token: the last returned row's own ranking
// tuple. Callers never inspect it.
type Cursor struct {
	row remote.Document
}

// Paginator fetches ranked pages of posts and writes them into the cache.
type Paginator struct {
	store    remote.Store
	cache    *cache.EntityCache
	viewerID string
	pageSize int
	log      *slog.Logger

	mu       sync.Mutex
	inFlight bool
	cursor   *Cursor
	legacy   bool
	done     bool
}

// Option customizes a Paginator.
type Option func(*Paginator)

// WithPageSize overrides the page size. Values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(p *Paginator) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Paginator) { p.log = log }
}

// New builds a Paginator for the given viewer.
func New(store remote.Store, c *cache.EntityCache, viewerID string, opts ...Option) *Paginator {
	p := &Paginator{
		store:    store,
		cache:    c,
		viewerID: viewerID,
		pageSize: DefaultPageSize,
		log:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rankingOrder picks the ordering for the next page. Once a cursor row
// without a likes value has put the paginator in legacy mode, every later
// page keeps createdAt-only ordering so the two orderings never interleave
// within one pagination run.
func (p *Paginator) rankingOrder() []remote.Order {
	if p.legacy {
		return []remote.Order{
			{Field: remote.FieldTimestamp, Desc: true},
		}
	}
	return []remote.Order{
		{Field: remote.FieldLikes, Desc: true},
		{Field: remote.FieldTimestamp, Desc: true},
	}
}

// NextPage fetches the next page of posts. A second call while one is in
// flight returns ErrLoadInFlight rather than queueing, bounding concurrent
// loads per feed to one. After end-of-feed it returns ErrExhausted until
// Refresh.
func (p *Paginator) NextPage(ctx context.Context) ([]models.Post, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrLoadInFlight
	}
	if p.done {
		p.mu.Unlock()
		return nil, ErrExhausted
	}
	p.inFlight = true
	orders := p.rankingOrder()
	var after *remote.Document
	if p.cursor != nil {
		row := p.cursor.row
		after = &row
	}
	p.mu.Unlock()

	q := remote.Query{
		Scope:   remote.Scope{Collection: remote.CollectionPosts},
		OrderBy: orders,
		Limit:   p.pageSize,
		After:   after,
	}
	docs, err := p.store.QueryPage(ctx, q)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	if err != nil {
		return nil, models.NewTransportError(err)
	}

	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		post, err := remote.DecodePost(doc.ID, doc.Data, p.viewerID)
		if err != nil {
			// Malformed rows are skipped, never fatal to the page.
			p.log.Warn("skipping malformed feed row", "id", doc.ID, "error", err)
			continue
		}
		posts = append(posts, post)
		p.cache.Put(models.KindPost, post.ID, post)
	}

	if len(docs) > 0 {
		last := docs[len(docs)-1]
		if _, hasLikes := last.Data[remote.FieldLikes]; !hasLikes {
			p.legacy = true
		}
		p.cursor = &Cursor{row: last}
	}
	if len(docs) < p.pageSize {
		p.done = true
	}
	return posts, nil
}

// Exhausted reports whether the feed has signalled end-of-feed.
func (p *Paginator) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Refresh resets the cursor, the ordering latch and the end-of-feed latch so
// the feed reloads from the top under the ranked ordering.
func (p *Paginator) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = nil
	p.legacy = false
	p.done = false
}

// PostIDs is a convenience projection for view models.
func PostIDs(posts []models.Post) []string {
	return lo.Map(posts, func(p models.Post, _ int) string { return p.ID })
}
