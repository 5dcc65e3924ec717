// Package stream routes push-delivered change batches into the entity
// cache. One subscription covers one scope: a post's comments, a chat's
// messages, or a post document itself for its like/comment counters.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/cache"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
)

// State is the lifecycle of a subscription.
type State int32

const (
	StateIdle State = iota
	StateAttached
	StateDelivering
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttached:
		return "attached"
	case StateDelivering:
		return "delivering"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Router attaches subscriptions and applies their batches to the cache.
type Router struct {
	store    remote.Store
	cache    *cache.EntityCache
	viewerID string
	log      *slog.Logger
}

// New builds a Router. viewerID scopes decoded posts (viewerHasLiked).
func New(store remote.Store, c *cache.EntityCache, viewerID string, log *slog.Logger) *Router {
	if log == nil {
		log = observability.NopLogger()
	}
	return &Router{store: store, cache: c, viewerID: viewerID, log: log}
}

// Subscription is one attached scope. Detach must be called on every exit
// path before the owning view is discarded; after Detach returns, no further
// callback fires.
type Subscription struct {
	scope  remote.Scope
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	detach sync.Once
	sub    remote.Subscription
}

// State returns the subscription's current lifecycle state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// Done is closed when the delivery goroutine has fully stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Detach tears the subscription down. Idempotent; safe on every exit path.
func (s *Subscription) Detach() {
	s.detach.Do(func() {
		s.cancel()
		_ = s.sub.Close()
	})
	<-s.done
}

// Attach opens a push subscription for scope and starts applying its batches
// in delivered order. onErr, if non-nil, receives the scope-level error when
// the underlying stream drops; sibling subscriptions are unaffected.
func (r *Router) Attach(ctx context.Context, scope remote.Scope, onErr func(error)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	remoteSub, err := r.store.Subscribe(ctx, scope)
	if err != nil {
		cancel()
		return nil, models.NewTransportError(err)
	}

	s := &Subscription{
		scope:  scope,
		cancel: cancel,
		done:   make(chan struct{}),
		sub:    remoteSub,
	}
	s.state.Store(int32(StateAttached))

	go func() {
		// Detached is guaranteed on every exit path, error paths included,
		// so no callback can ever fire into a discarded owner.
		defer func() {
			s.state.Store(int32(StateDetached))
			_ = remoteSub.Close()
			close(s.done)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-remoteSub.Changes():
				if !ok {
					if err := remoteSub.Err(); err != nil && onErr != nil && ctx.Err() == nil {
						observability.StreamErrors.WithLabelValues(scope.Collection).Inc()
						onErr(err)
					}
					return
				}
				s.state.Store(int32(StateDelivering))
				r.applyBatch(scope, batch)
				s.state.Store(int32(StateAttached))
			}
		}
	}()

	return s, nil
}

// applyBatch normalizes a batch into cache upserts and deletes, applied in
// the batch's reported order. Applying the same (id, revision) twice is a
// no-op, which makes at-least-once delivery safe.
func (r *Router) applyBatch(scope remote.Scope, batch remote.Batch) {
	observability.StreamBatches.WithLabelValues(scope.Collection).Inc()
	for _, change := range batch.Changes {
		kind := kindForCollection(scope.Collection)
		if kind == "" {
			r.log.Warn("change for unroutable collection", "collection", scope.Collection)
			continue
		}
		if change.Type == remote.ChangeDelete {
			r.cache.Delete(kind, change.Doc.ID)
			continue
		}
		value, err := r.decode(scope, change.Doc)
		if err != nil {
			// Malformed payloads are skipped, never fatal to the scope.
			r.log.Warn("skipping malformed change", "collection", scope.Collection, "id", change.Doc.ID, "error", err)
			continue
		}
		r.cache.ApplyRemote(kind, change.Doc.ID, value, change.Revision)
	}
}

func (r *Router) decode(scope remote.Scope, doc remote.Document) (any, error) {
	switch scope.Collection {
	case remote.CollectionPosts:
		return remote.DecodePost(doc.ID, doc.Data, r.viewerID)
	case remote.CollectionComments:
		return remote.DecodeComment(doc.ID, doc.Data)
	case remote.CollectionMessages:
		return remote.DecodeMessage(doc.ID, scope.Parent, doc.Data)
	case remote.CollectionChats:
		return remote.DecodeChat(doc.ID, doc.Data)
	default:
		return nil, models.NewMalformedError(scope.Collection, "no decoder for collection")
	}
}

func kindForCollection(collection string) models.Kind {
	switch collection {
	case remote.CollectionPosts:
		return models.KindPost
	case remote.CollectionComments:
		return models.KindComment
	case remote.CollectionMessages:
		return models.KindMessage
	case remote.CollectionChats:
		return models.KindChat
	default:
		return ""
	}
}
