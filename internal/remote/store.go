// Package remote defines the contract for the authoritative remote document
// store and the defensive codecs for its wire shapes. The store is the single
// source of truth; everything cached locally is advisory and yields to it.
package remote

import "context"

// Collection names used by the store.
const (
	CollectionPosts    = "posts"
	CollectionComments = "comments"
	CollectionChats    = "chats"
	CollectionMessages = "messages"
	CollectionUsers    = "users"
)

// Document is a raw remote document: an id plus an untyped field map.
type Document struct {
	ID   string
	Data map[string]any
}

// Scope addresses a collection, optionally nested under a parent document
// (comments under a post, messages under a chat).
type Scope struct {
	Collection string
	Parent     string
}

// Order is a single ordering term of a query.
type Order struct {
	Field string
	Desc  bool
}

// Query describes an ordered range read. After, when set, resumes strictly
// past that row under the query's own ordering.
type Query struct {
	Scope         Scope
	Match         map[string]any // equality filters
	ArrayContains map[string]any // array-membership filters
	OrderBy       []Order
	Limit         int
	After         *Document
}

// ChangeType discriminates entries of a change batch.
type ChangeType int

const (
	ChangeUpsert ChangeType = iota
	ChangeDelete
)

// Change is one normalized mutation observed on a subscribed scope. Revision
// increases monotonically per scope; redelivery of an already-applied
// revision must be a no-op for consumers.
type Change struct {
	Type     ChangeType
	Doc      Document
	Revision uint64
}

// Batch is an ordered group of changes delivered together.
type Batch struct {
	Changes []Change
}

// Subscription is an active push feed for a single scope. Changes is closed
// when the subscription ends; Err reports why, if anything went wrong.
type Subscription interface {
	Changes() <-chan Batch
	Err() error
	Close() error
}

// Store is the remote document store contract. Implementations must deliver
// subscription batches at-least-once and in order for a single subscription.
type Store interface {
	GetDocument(ctx context.Context, scope Scope, id string) (Document, error)
	QueryPage(ctx context.Context, q Query) ([]Document, error)
	// Create writes a new document under a store-assigned id and returns it.
	Create(ctx context.Context, scope Scope, data map[string]any) (string, error)
	// Put writes a document under a caller-chosen id.
	Put(ctx context.Context, scope Scope, id string, data map[string]any) error
	UpdateFields(ctx context.Context, scope Scope, id string, fields map[string]any) error
	Delete(ctx context.Context, scope Scope, id string) error
	Subscribe(ctx context.Context, scope Scope) (Subscription, error)
}
