package models

import (
	"sort"
	"strings"
	"time"
)

// SharedPostPreview is the chat preview text shown for a shared-post message.
const SharedPostPreview = "[Photo]"

// Chat is a 1:1 conversation. Participants are always stored sorted so that
// any unordered pair maps to exactly one canonical participant list.
type Chat struct {
	ID                 string    `json:"id"`
	Participants       []string  `json:"participants"`
	LastMessagePreview string    `json:"last_message"`
	LastMessageAt      time.Time `json:"last_timestamp"`
}

// Message is a single chat message: either plain text or a shared post,
// never both.
type Message struct {
	ID           string    `json:"id"`
	ChatID       string    `json:"chat_id"`
	SenderID     string    `json:"sender_id"`
	Text         *string   `json:"text,omitempty"`
	SharedPostID *string   `json:"post_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsShare reports whether the message carries a shared post instead of text.
func (m Message) IsShare() bool { return m.SharedPostID != nil }

// Valid reports whether exactly one of Text and SharedPostID is set.
func (m Message) Valid() bool {
	return (m.Text != nil) != (m.SharedPostID != nil)
}

// CanonicalPair returns the two participant ids sorted ascending.
func CanonicalPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

// PairKey derives the deterministic lookup key for a participant pair.
func PairKey(a, b string) string {
	return strings.Join(CanonicalPair(a, b), "|")
}

// CompareMessages orders messages by CreatedAt ascending, ties broken by ID.
func CompareMessages(a, b Message) int {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}
