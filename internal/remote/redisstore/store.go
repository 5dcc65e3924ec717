// Package redisstore implements remote.Store on Redis: documents in plain
// keys, per-scope id indexes in sorted sets, and the change feed on pub/sub
// channels. It exists so the sync core can run against a real push-capable
// backend without the hosted document service.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
)

// Store is a Redis-backed remote.Store. Writes are last-write-wins; there is
// deliberately no read-modify-write protection, matching the store contract
// where the remote is the final arbiter and pushes overwrite local state.
type Store struct {
	rdb *redis.Client
	log *slog.Logger
}

// New wraps an existing Redis client.
func New(rdb *redis.Client, log *slog.Logger) *Store {
	if log == nil {
		log = observability.NopLogger()
	}
	return &Store{rdb: rdb, log: log}
}

// Open connects to addr (host:port or a redis:// URL) and pings it.
func Open(ctx context.Context, addr string, log *slog.Logger) (*Store, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("redisstore: invalid url %q: %w", addr, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return New(rdb, log), nil
}

func scopeKey(s remote.Scope) string {
	if s.Parent == "" {
		return s.Collection
	}
	return s.Collection + ":" + s.Parent
}

func docKey(s remote.Scope, id string) string { return "doc:" + scopeKey(s) + ":" + id }
func idxKey(s remote.Scope) string            { return "idx:" + scopeKey(s) }
func revKey(s remote.Scope) string            { return "rev:" + scopeKey(s) }

// channelFor is the pub/sub channel carrying a scope's changes. Document-
// scoped subscriptions on a top-level collection share the collection
// channel and filter by id on receive.
func channelFor(s remote.Scope) string { return "changes:" + scopeKey(s) }

type wireDoc struct {
	Data map[string]any `json:"data"`
	Rev  uint64         `json:"rev"`
}

type wireChange struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Rev  uint64         `json:"rev"`
	Data map[string]any `json:"data,omitempty"`
}

func (s *Store) GetDocument(ctx context.Context, scope remote.Scope, id string) (remote.Document, error) {
	raw, err := s.rdb.Get(ctx, docKey(scope, id)).Result()
	if errors.Is(err, redis.Nil) {
		return remote.Document{}, models.NewNotFoundError(scope.Collection, id)
	}
	if err != nil {
		return remote.Document{}, models.NewTransportError(err)
	}
	var doc wireDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return remote.Document{}, models.NewMalformedError(scope.Collection, err.Error())
	}
	return remote.Document{ID: id, Data: doc.Data}, nil
}

func (s *Store) QueryPage(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	ids, err := s.rdb.ZRange(ctx, idxKey(q.Scope), 0, -1).Result()
	if err != nil {
		return nil, models.NewTransportError(err)
	}
	docs := make([]remote.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetDocument(ctx, q.Scope, id)
		if err != nil {
			if models.IsNotFound(err) {
				continue // deleted between index read and fetch
			}
			return nil, err
		}
		if remote.MatchesQuery(doc, q) {
			docs = append(docs, doc)
		}
	}
	remote.SortDocuments(docs, q.OrderBy)
	docs = remote.FilterAfter(docs, q.After, q.OrderBy)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (s *Store) Create(ctx context.Context, scope remote.Scope, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.write(ctx, scope, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Put(ctx context.Context, scope remote.Scope, id string, data map[string]any) error {
	return s.write(ctx, scope, id, data)
}

func (s *Store) UpdateFields(ctx context.Context, scope remote.Scope, id string, fields map[string]any) error {
	doc, err := s.GetDocument(ctx, scope, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc.Data[k] = v
	}
	return s.write(ctx, scope, id, doc.Data)
}

func (s *Store) write(ctx context.Context, scope remote.Scope, id string, data map[string]any) error {
	rev, err := s.rdb.Incr(ctx, revKey(scope)).Uint64()
	if err != nil {
		return models.NewTransportError(err)
	}
	payload, err := json.Marshal(wireDoc{Data: data, Rev: rev})
	if err != nil {
		return models.NewMalformedError(scope.Collection, err.Error())
	}
	score := float64(0)
	if t, ok := data[remote.FieldTimestamp].(time.Time); ok {
		score = float64(t.UnixNano())
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, docKey(scope, id), payload, 0)
	pipe.ZAdd(ctx, idxKey(scope), redis.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return models.NewTransportError(err)
	}
	s.publish(ctx, scope, wireChange{Type: "upsert", ID: id, Rev: rev, Data: s.roundTrip(data)})
	return nil
}

func (s *Store) Delete(ctx context.Context, scope remote.Scope, id string) error {
	rev, err := s.rdb.Incr(ctx, revKey(scope)).Uint64()
	if err != nil {
		return models.NewTransportError(err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, docKey(scope, id))
	pipe.ZRem(ctx, idxKey(scope), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.NewTransportError(err)
	}
	s.publish(ctx, scope, wireChange{Type: "delete", ID: id, Rev: rev})
	return nil
}

// roundTrip forces data through JSON so subscribers see the same value
// shapes (string timestamps, float numbers) as document reads.
func (s *Store) roundTrip(data map[string]any) map[string]any {
	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return data
	}
	return out
}

func (s *Store) publish(ctx context.Context, scope remote.Scope, change wireChange) {
	payload, err := json.Marshal(change)
	if err != nil {
		s.log.Warn("change publish marshal failed", "scope", scopeKey(scope), "error", err)
		return
	}
	if err := s.rdb.Publish(ctx, channelFor(scope), payload).Err(); err != nil {
		s.log.Warn("change publish failed", "scope", scopeKey(scope), "error", err)
	}
}

func (s *Store) Subscribe(ctx context.Context, scope remote.Scope) (remote.Subscription, error) {
	// A Scope{posts, <id>} subscription watches one document of a top-level
	// collection; its changes flow on the collection channel.
	channelScope := scope
	var filterID string
	if scope.Collection == remote.CollectionPosts && scope.Parent != "" {
		channelScope = remote.Scope{Collection: scope.Collection}
		filterID = scope.Parent
	}

	pubsub := s.rdb.Subscribe(ctx, channelFor(channelScope))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, models.NewTransportError(err)
	}

	sub := &subscription{
		ch:     make(chan remote.Batch, 64),
		pubsub: pubsub,
	}
	go sub.run(ctx, s.log, filterID)
	return sub, nil
}

// subscription ends only on Close or context cancellation: go-redis pub/sub
// reconnects internally on transport errors, so Err always reports nil and
// consumers never see a scope-level failure from this store.
type subscription struct {
	ch     chan remote.Batch
	pubsub *redis.PubSub
}

func (s *subscription) run(ctx context.Context, log *slog.Logger, filterID string) {
	defer close(s.ch)
	msgs := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var change wireChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Warn("dropping undecodable change", "error", err)
				continue
			}
			if filterID != "" && change.ID != filterID {
				continue
			}
			typ := remote.ChangeUpsert
			if change.Type == "delete" {
				typ = remote.ChangeDelete
			}
			batch := remote.Batch{Changes: []remote.Change{{
				Type:     typ,
				Doc:      remote.Document{ID: change.ID, Data: change.Data},
				Revision: change.Rev,
			}}}
			select {
			case s.ch <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *subscription) Changes() <-chan remote.Batch { return s.ch }
func (s *subscription) Err() error                   { return nil }
func (s *subscription) Close() error                 { return s.pubsub.Close() }
