package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPairIsOrderIndependent(t *testing.T) {
	assert.Equal(t, CanonicalPair("bob", "alice"), CanonicalPair("alice", "bob"))
	assert.Equal(t, []string{"alice", "bob"}, CanonicalPair("bob", "alice"))
	assert.Equal(t, PairKey("bob", "alice"), PairKey("alice", "bob"))
}

func TestMessageValid(t *testing.T) {
	text := "hey"
	postID := "p1"

	assert.True(t, Message{Text: &text}.Valid())
	assert.True(t, Message{SharedPostID: &postID}.Valid())
	assert.False(t, Message{}.Valid())
	assert.False(t, Message{Text: &text, SharedPostID: &postID}.Valid())
}

func TestCompareMessagesOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := Message{ID: "m2", CreatedAt: base}
	later := Message{ID: "m1", CreatedAt: base.Add(time.Second)}
	tie := Message{ID: "m3", CreatedAt: base}

	assert.Negative(t, CompareMessages(earlier, later))
	assert.Positive(t, CompareMessages(later, earlier))
	// Equal timestamps fall back to id ordering.
	assert.Negative(t, CompareMessages(earlier, tie))
}

func TestCompareCommentsOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := Comment{ID: "a", CreatedAt: base}
	b := Comment{ID: "b", CreatedAt: base}
	newer := Comment{ID: "c", CreatedAt: base.Add(time.Minute)}

	assert.Negative(t, CompareComments(a, newer))
	assert.Negative(t, CompareComments(a, b))
	assert.Zero(t, CompareComments(a, a))
}
