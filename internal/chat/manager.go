// Package chat resolves 1:1 chat identities and composes the message stream
// with the optimistic send path.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/cache"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/mutate"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/stream"
)

// ErrLoadInFlight is returned when ListChats is called while a chat list
// load is already running.
var ErrLoadInFlight = errors.New("chat: list load already in flight")

// Manager owns chat resolution, sends and the chat list for one viewer.
type Manager struct {
	store   remote.Store
	cache   *cache.EntityCache
	mutator *mutate.Mutator
	router  *stream.Router
	viewer  models.UserSummary
	log     *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	loading bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New builds a Manager for the given viewer.
func New(store remote.Store, c *cache.EntityCache, mutator *mutate.Mutator, router *stream.Router, viewer models.UserSummary, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		cache:   c,
		mutator: mutator,
		router:  router,
		viewer:  viewer,
		log:     observability.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveOrCreate returns the chat between the viewer and other, creating it
// with an empty preview when none exists. Lookup is by the canonical sorted
// participant pair, so the result is independent of argument order and
// idempotent after the first successful creation.
//
// The lookup-then-create sequence is not atomic against a concurrent first
// message from the other side; two chats can in principle be created for the
// same pair. The race is rare and self-healing because every caller adopts
// whichever chat this method returns next time.
func (m *Manager) ResolveOrCreate(ctx context.Context, other string) (models.Chat, error) {
	if m.viewer.ID == "" {
		return models.Chat{}, models.NewNotSignedInError()
	}
	pair := models.CanonicalPair(m.viewer.ID, other)

	docs, err := m.store.QueryPage(ctx, remote.Query{
		Scope: remote.Scope{Collection: remote.CollectionChats},
		Match: map[string]any{remote.FieldParticipants: pair},
		Limit: 1,
	})
	if err != nil {
		return models.Chat{}, models.NewTransportError(err)
	}
	if len(docs) > 0 {
		chat, err := remote.DecodeChat(docs[0].ID, docs[0].Data)
		if err != nil {
			return models.Chat{}, err
		}
		m.cache.Put(models.KindChat, chat.ID, chat)
		return chat, nil
	}

	chat := models.Chat{
		Participants:       pair,
		LastMessagePreview: "",
		LastMessageAt:      m.now(),
	}
	id, err := m.store.Create(ctx, remote.Scope{Collection: remote.CollectionChats}, remote.EncodeChat(chat))
	if err != nil {
		return models.Chat{}, models.NewTransportError(err)
	}
	chat.ID = id
	m.cache.Put(models.KindChat, chat.ID, chat)
	return chat, nil
}

// SendMessage sends a text message and bumps the chat preview.
func (m *Manager) SendMessage(ctx context.Context, chatID, text string) (models.Message, error) {
	msg, err := m.mutator.SendMessage(ctx, chatID, text)
	if err != nil {
		return models.Message{}, err
	}
	m.bumpPreview(ctx, chatID, text, msg.CreatedAt)
	return msg, nil
}

// SendSharedPost sends a shared-post message and bumps the chat preview
// with the share placeholder.
func (m *Manager) SendSharedPost(ctx context.Context, chatID, postID string) (models.Message, error) {
	msg, err := m.mutator.SendSharedPost(ctx, chatID, postID)
	if err != nil {
		return models.Message{}, err
	}
	m.bumpPreview(ctx, chatID, models.SharedPostPreview, msg.CreatedAt)
	return msg, nil
}

// bumpPreview is the second, logically-dependent write after a send. It is
// not atomic with the message write; the preview is a read optimization, so
// a failed bump is logged and swallowed rather than failing the send.
func (m *Manager) bumpPreview(ctx context.Context, chatID, preview string, at time.Time) {
	err := m.store.UpdateFields(ctx, remote.Scope{Collection: remote.CollectionChats}, chatID, map[string]any{
		remote.FieldLastMessage:   preview,
		remote.FieldLastTimestamp: at,
	})
	if err != nil {
		m.log.Warn("chat preview bump failed", "chat_id", chatID, "error", err)
		return
	}
	if chat, ok := cache.Lookup[models.Chat](m.cache, models.KindChat, chatID); ok {
		chat.LastMessagePreview = preview
		chat.LastMessageAt = at
		m.cache.Put(models.KindChat, chatID, chat)
	}
}

// ListChats fetches the viewer's chats ordered by last activity, most recent
// first. A call while another list load is in flight returns ErrLoadInFlight
// rather than queueing.
func (m *Manager) ListChats(ctx context.Context) ([]models.Chat, error) {
	if m.viewer.ID == "" {
		return nil, models.NewNotSignedInError()
	}
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return nil, ErrLoadInFlight
	}
	m.loading = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	docs, err := m.store.QueryPage(ctx, remote.Query{
		Scope:         remote.Scope{Collection: remote.CollectionChats},
		ArrayContains: map[string]any{remote.FieldParticipants: m.viewer.ID},
		OrderBy:       []remote.Order{{Field: remote.FieldLastTimestamp, Desc: true}},
	})
	if err != nil {
		return nil, models.NewTransportError(err)
	}

	chats := make([]models.Chat, 0, len(docs))
	for _, doc := range docs {
		chat, err := remote.DecodeChat(doc.ID, doc.Data)
		if err != nil {
			m.log.Warn("skipping malformed chat row", "id", doc.ID, "error", err)
			continue
		}
		chats = append(chats, chat)
		m.cache.Put(models.KindChat, chat.ID, chat)
	}
	return chats, nil
}

// WatchMessages attaches the message stream for a chat. The returned
// subscription must be detached when the conversation view closes.
func (m *Manager) WatchMessages(ctx context.Context, chatID string, onErr func(error)) (*stream.Subscription, error) {
	scope := remote.Scope{Collection: remote.CollectionMessages, Parent: chatID}
	return m.router.Attach(ctx, scope, onErr)
}
