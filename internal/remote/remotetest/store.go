// Package remotetest provides an in-memory remote.Store fake for package
// tests: scripted failures, call counters and push delivery that mirrors the
// real store's at-least-once, in-order guarantee.
package remotetest

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
)

// Store is an in-memory remote.Store. Every successful write is also
// published to matching subscriptions, the way the real store pushes change
// notifications.
type Store struct {
	mu   sync.Mutex
	docs map[string]map[string]remote.Document
	revs map[string]uint64
	subs []*subscription

	// Scripted failures, one per operation. Nil means success.
	FailGet       error
	FailQuery     error
	FailCreate    error
	FailPut       error
	FailUpdate    error
	FailDelete    error
	FailSubscribe error

	// BeforeQuery, when set, runs inside every QueryPage call.
	BeforeQuery func(remote.Query)

	QueryCalls  int
	GetCalls    int
	CreateCalls int
}

// NewStore returns an empty fake store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]map[string]remote.Document),
		revs: make(map[string]uint64),
	}
}

func scopeKey(s remote.Scope) string { return s.Collection + "/" + s.Parent }

// Seed inserts a document without publishing a change.
func (s *Store) Seed(scope remote.Scope, id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(scope, id, data)
}

func (s *Store) insert(scope remote.Scope, id string, data map[string]any) {
	key := scopeKey(scope)
	if s.docs[key] == nil {
		s.docs[key] = make(map[string]remote.Document)
	}
	s.docs[key][id] = remote.Document{ID: id, Data: maps.Clone(data)}
}

func (s *Store) GetDocument(_ context.Context, scope remote.Scope, id string) (remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCalls++
	if s.FailGet != nil {
		return remote.Document{}, s.FailGet
	}
	doc, ok := s.docs[scopeKey(scope)][id]
	if !ok {
		return remote.Document{}, models.NewNotFoundError(scope.Collection, id)
	}
	return doc, nil
}

func (s *Store) QueryPage(_ context.Context, q remote.Query) ([]remote.Document, error) {
	s.mu.Lock()
	s.QueryCalls++
	failed := s.FailQuery
	var docs []remote.Document
	for _, d := range s.docs[scopeKey(q.Scope)] {
		if remote.MatchesQuery(d, q) {
			docs = append(docs, d)
		}
	}
	before := s.BeforeQuery
	s.mu.Unlock()

	if before != nil {
		before(q)
	}
	if failed != nil {
		return nil, failed
	}

	remote.SortDocuments(docs, q.OrderBy)
	docs = remote.FilterAfter(docs, q.After, q.OrderBy)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (s *Store) Create(_ context.Context, scope remote.Scope, data map[string]any) (string, error) {
	s.mu.Lock()
	s.CreateCalls++
	if s.FailCreate != nil {
		defer s.mu.Unlock()
		return "", s.FailCreate
	}
	id := uuid.NewString()
	s.insert(scope, id, data)
	batch := s.changeBatch(scope, remote.ChangeUpsert, id, data)
	s.mu.Unlock()

	s.Push(scope, id, batch)
	return id, nil
}

func (s *Store) Put(_ context.Context, scope remote.Scope, id string, data map[string]any) error {
	s.mu.Lock()
	if s.FailPut != nil {
		defer s.mu.Unlock()
		return s.FailPut
	}
	s.insert(scope, id, data)
	batch := s.changeBatch(scope, remote.ChangeUpsert, id, data)
	s.mu.Unlock()

	s.Push(scope, id, batch)
	return nil
}

func (s *Store) UpdateFields(_ context.Context, scope remote.Scope, id string, fields map[string]any) error {
	s.mu.Lock()
	if s.FailUpdate != nil {
		defer s.mu.Unlock()
		return s.FailUpdate
	}
	doc, ok := s.docs[scopeKey(scope)][id]
	if !ok {
		defer s.mu.Unlock()
		return models.NewNotFoundError(scope.Collection, id)
	}
	for k, v := range fields {
		doc.Data[k] = v
	}
	s.docs[scopeKey(scope)][id] = doc
	batch := s.changeBatch(scope, remote.ChangeUpsert, id, doc.Data)
	s.mu.Unlock()

	s.Push(scope, id, batch)
	return nil
}

func (s *Store) Delete(_ context.Context, scope remote.Scope, id string) error {
	s.mu.Lock()
	if s.FailDelete != nil {
		defer s.mu.Unlock()
		return s.FailDelete
	}
	delete(s.docs[scopeKey(scope)], id)
	batch := s.changeBatch(scope, remote.ChangeDelete, id, nil)
	s.mu.Unlock()

	s.Push(scope, id, batch)
	return nil
}

func (s *Store) changeBatch(scope remote.Scope, typ remote.ChangeType, id string, data map[string]any) remote.Batch {
	key := scopeKey(scope)
	s.revs[key]++
	return remote.Batch{Changes: []remote.Change{{
		Type:     typ,
		Doc:      remote.Document{ID: id, Data: maps.Clone(data)},
		Revision: s.revs[key],
	}}}
}

// Push delivers a batch to every subscription watching the document's scope.
// Writes call it automatically; tests may call it directly to script
// redelivery or out-of-band changes.
func (s *Store) Push(scope remote.Scope, docID string, batch remote.Batch) {
	s.mu.Lock()
	var targets []*subscription
	for _, sub := range s.subs {
		if sub.matches(scope, docID) {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(batch)
	}
}

// DropSubscriptions terminates every subscription on the scope with err,
// simulating a stream failure.
func (s *Store) DropSubscriptions(scope remote.Scope, err error) {
	s.mu.Lock()
	var targets []*subscription
	for _, sub := range s.subs {
		if sub.scope == scope {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.fail(err)
	}
}

func (s *Store) Subscribe(_ context.Context, scope remote.Scope) (remote.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSubscribe != nil {
		return nil, s.FailSubscribe
	}
	sub := &subscription{scope: scope, ch: make(chan remote.Batch, 256)}
	s.subs = append(s.subs, sub)
	return sub, nil
}

type subscription struct {
	scope  remote.Scope
	ch     chan remote.Batch
	mu     sync.Mutex
	err    error
	closed bool
}

func (s *subscription) matches(scope remote.Scope, docID string) bool {
	if s.scope.Collection != scope.Collection {
		return false
	}
	// A parent-scoped subscription on a top-level collection watches a
	// single document (a post's counters); otherwise parents must agree.
	if scope.Parent == "" && s.scope.Parent != "" {
		return s.scope.Parent == docID
	}
	return s.scope.Parent == scope.Parent
}

func (s *subscription) deliver(batch remote.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- batch
}

func (s *subscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.closed = true
	close(s.ch)
}

func (s *subscription) Changes() <-chan remote.Batch { return s.ch }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
