// Package mutate applies local user actions optimistically and reconciles
// them with the remote store. Counter-style mutations (like toggle) are
// reverted on failure; append-style mutations (comment add, message send)
// insert a provisional row that is promoted or discarded when the remote
// write settles. The remote store remains the final arbiter: the next push
// event always overwrites whatever was applied locally.
package mutate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/cache"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
)

// Mutator issues writes on behalf of a single signed-in viewer.
type Mutator struct {
	store  remote.Store
	cache  *cache.EntityCache
	viewer models.UserSummary
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option customizes a Mutator.
type Option func(*Mutator)

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mutator) { m.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Mutator) { m.now = now }
}

// WithIDSource overrides provisional id generation.
func WithIDSource(newID func() string) Option {
	return func(m *Mutator) { m.newID = newID }
}

// New builds a Mutator. The viewer carries the denormalized author snapshot
// (display name, avatar) written into comments at creation time.
func New(store remote.Store, c *cache.EntityCache, viewer models.UserSummary, opts ...Option) *Mutator {
	m := &Mutator{
		store:  store,
		cache:  c,
		viewer: viewer,
		log:    observability.NopLogger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mutator) signedIn() error {
	if m.viewer.ID == "" {
		return models.NewNotSignedInError()
	}
	return nil
}

// transportErr preserves structured store errors and wraps everything else.
func transportErr(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewTransportError(err)
}

// ToggleLike flips the viewer's like on a post. The cache is updated
// immediately; the remote write carries no precondition, and a failed write
// reverts exactly the delta that was applied.
func (m *Mutator) ToggleLike(ctx context.Context, postID string) (models.Post, error) {
	if err := m.signedIn(); err != nil {
		return models.Post{}, err
	}
	prev, ok := cache.Lookup[models.Post](m.cache, models.KindPost, postID)
	if !ok {
		return models.Post{}, models.NewNotFoundError("post", postID)
	}

	next := prev
	if prev.ViewerHasLiked {
		next.LikeCount = prev.LikeCount - 1
		if next.LikeCount < 0 {
			next.LikeCount = 0
		}
	} else {
		next.LikeCount = prev.LikeCount + 1
	}
	next.ViewerHasLiked = !prev.ViewerHasLiked
	m.cache.Put(models.KindPost, postID, next)

	err := m.store.UpdateFields(ctx, remote.Scope{Collection: remote.CollectionPosts}, postID, map[string]any{
		remote.FieldLikes:   next.LikeCount,
		remote.FieldIsLiked: next.ViewerHasLiked,
	})
	if err != nil {
		m.cache.Put(models.KindPost, postID, prev)
		observability.OptimisticRollbacks.WithLabelValues("like_toggle").Inc()
		m.log.Warn("like toggle failed, reverted", "post_id", postID, "error", err)
		return models.Post{}, transportErr(err)
	}
	return next, nil
}

// AddComment appends a comment to a post. The comment id is generated
// locally and used as the remote document id, so the row the push stream
// later redelivers carries the same id and merges onto the optimistic one.
func (m *Mutator) AddComment(ctx context.Context, postID, text string) (models.Comment, error) {
	if err := m.signedIn(); err != nil {
		return models.Comment{}, err
	}
	comment := models.Comment{
		ID:              m.newID(),
		PostID:          postID,
		AuthorID:        m.viewer.ID,
		AuthorName:      m.viewer.DisplayName,
		AuthorAvatarURL: m.viewer.AvatarURL,
		Text:            text,
		CreatedAt:       m.now(),
	}
	m.cache.Put(models.KindComment, comment.ID, comment)

	scope := remote.Scope{Collection: remote.CollectionComments, Parent: postID}
	if err := m.store.Put(ctx, scope, comment.ID, remote.EncodeComment(comment)); err != nil {
		m.cache.Delete(models.KindComment, comment.ID)
		observability.OptimisticRollbacks.WithLabelValues("comment_add").Inc()
		return models.Comment{}, transportErr(err)
	}
	return comment, nil
}

// EditComment is deliberately not optimistic: the comment's identity is
// already known, so the view simply follows the push stream once the remote
// write lands.
func (m *Mutator) EditComment(ctx context.Context, postID, commentID, newText string) error {
	if err := m.signedIn(); err != nil {
		return err
	}
	scope := remote.Scope{Collection: remote.CollectionComments, Parent: postID}
	// The original timestamp is kept; only the text changes.
	err := m.store.UpdateFields(ctx, scope, commentID, map[string]any{
		remote.FieldText: newText,
	})
	if err != nil {
		return transportErr(err)
	}
	return nil
}

// DeleteComment removes a comment remotely; the view updates when the push
// stream reflects the delete.
func (m *Mutator) DeleteComment(ctx context.Context, postID, commentID string) error {
	if err := m.signedIn(); err != nil {
		return err
	}
	scope := remote.Scope{Collection: remote.CollectionComments, Parent: postID}
	if err := m.store.Delete(ctx, scope, commentID); err != nil {
		return transportErr(err)
	}
	return nil
}

// SendMessage appends a text message to a chat.
func (m *Mutator) SendMessage(ctx context.Context, chatID, text string) (models.Message, error) {
	return m.appendMessage(ctx, chatID, &text, nil)
}

// SendSharedPost appends a shared-post message to a chat.
func (m *Mutator) SendSharedPost(ctx context.Context, chatID, postID string) (models.Message, error) {
	return m.appendMessage(ctx, chatID, nil, &postID)
}

// appendMessage inserts the message under a provisional id, issues the
// remote create, and promotes the provisional row in place once the real id
// is known from the acknowledgment. If the push stream delivered the real
// row first, the provisional one is simply dropped.
func (m *Mutator) appendMessage(ctx context.Context, chatID string, text, sharedPostID *string) (models.Message, error) {
	if err := m.signedIn(); err != nil {
		return models.Message{}, err
	}
	msg := models.Message{
		ID:           m.newID(),
		ChatID:       chatID,
		SenderID:     m.viewer.ID,
		Text:         text,
		SharedPostID: sharedPostID,
		CreatedAt:    m.now(),
	}
	m.cache.Put(models.KindMessage, msg.ID, msg)

	scope := remote.Scope{Collection: remote.CollectionMessages, Parent: chatID}
	realID, err := m.store.Create(ctx, scope, remote.EncodeMessage(msg))
	if err != nil {
		m.cache.Delete(models.KindMessage, msg.ID)
		observability.OptimisticRollbacks.WithLabelValues("message_send").Inc()
		return models.Message{}, transportErr(err)
	}

	if realID != msg.ID {
		provisional := msg.ID
		msg.ID = realID
		if _, present := cache.Lookup[models.Message](m.cache, models.KindMessage, realID); !present {
			m.cache.Put(models.KindMessage, realID, msg)
		}
		m.cache.Delete(models.KindMessage, provisional)
	}
	return msg, nil
}
