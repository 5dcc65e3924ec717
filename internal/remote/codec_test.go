package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
)

func validPostData() map[string]any {
	return map[string]any{
		FieldAuthor:    "u1",
		FieldImageURL:  "https://img/1.jpg",
		FieldCaption:   "fit check #boho",
		FieldTimestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		FieldLikes:     3,
		FieldLikedBy:   []string{"u2", "u3"},
		FieldHashtags:  []string{"boho"},
	}
}

func TestDecodePost(t *testing.T) {
	post, err := DecodePost("p1", validPostData(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "u1", post.AuthorID)
	assert.Equal(t, 3, post.LikeCount)
	assert.True(t, post.ViewerHasLiked)
	assert.Equal(t, []string{"boho"}, post.Hashtags)
}

func TestDecodePostViewerNotInLikedBy(t *testing.T) {
	post, err := DecodePost("p1", validPostData(), "u9")
	require.NoError(t, err)
	assert.False(t, post.ViewerHasLiked)
}

func TestDecodePostNoViewer(t *testing.T) {
	post, err := DecodePost("p1", validPostData(), "")
	require.NoError(t, err)
	assert.False(t, post.ViewerHasLiked)
}

func TestDecodePostMissingLikesDefaultsToZero(t *testing.T) {
	d := validPostData()
	delete(d, FieldLikes)
	post, err := DecodePost("p1", d, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikeCount)
}

func TestDecodePostMalformedLikesDefaultsToZero(t *testing.T) {
	d := validPostData()
	d[FieldLikes] = "lots"
	post, err := DecodePost("p1", d, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikeCount)
}

func TestDecodePostNegativeLikesClamped(t *testing.T) {
	d := validPostData()
	d[FieldLikes] = -4
	post, err := DecodePost("p1", d, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikeCount)
}

func TestDecodePostLegacyIsLikedFlag(t *testing.T) {
	d := validPostData()
	delete(d, FieldLikedBy)
	d[FieldIsLiked] = true
	post, err := DecodePost("p1", d, "u9")
	require.NoError(t, err)
	assert.True(t, post.ViewerHasLiked)
}

func TestDecodePostMissingRequiredField(t *testing.T) {
	d := validPostData()
	delete(d, FieldAuthor)
	_, err := DecodePost("p1", d, "u2")
	assert.True(t, models.IsMalformed(err))
}

func TestDecodePostJSONRoundTripShapes(t *testing.T) {
	// Stores that round-trip through JSON deliver float numbers, string
	// timestamps and []any slices.
	d := map[string]any{
		FieldAuthor:    "u1",
		FieldImageURL:  "https://img/1.jpg",
		FieldCaption:   "hi",
		FieldTimestamp: "2025-06-01T10:00:00Z",
		FieldLikes:     float64(7),
		FieldLikedBy:   []any{"u2"},
	}
	post, err := DecodePost("p1", d, "u2")
	require.NoError(t, err)
	assert.Equal(t, 7, post.LikeCount)
	assert.True(t, post.ViewerHasLiked)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), post.CreatedAt)
}

func TestDecodeMessageExclusivity(t *testing.T) {
	base := map[string]any{
		FieldSenderID:  "u1",
		FieldTimestamp: time.Now(),
	}

	_, err := DecodeMessage("m1", "c1", base)
	assert.True(t, models.IsMalformed(err), "neither text nor postId")

	withBoth := map[string]any{
		FieldSenderID:  "u1",
		FieldTimestamp: time.Now(),
		FieldText:      "hi",
		FieldPostID:    "p1",
	}
	_, err = DecodeMessage("m1", "c1", withBoth)
	assert.True(t, models.IsMalformed(err), "both text and postId")

	withText := map[string]any{
		FieldSenderID:  "u1",
		FieldTimestamp: time.Now(),
		FieldText:      "hi",
	}
	msg, err := DecodeMessage("m1", "c1", withText)
	require.NoError(t, err)
	assert.Equal(t, "c1", msg.ChatID)
	require.NotNil(t, msg.Text)
	assert.Equal(t, "hi", *msg.Text)
}

func TestDecodeChatRequiresPair(t *testing.T) {
	_, err := DecodeChat("c1", map[string]any{
		FieldParticipants:  []string{"a", "b", "c"},
		FieldLastTimestamp: time.Now(),
	})
	assert.True(t, models.IsMalformed(err))

	chat, err := DecodeChat("c1", map[string]any{
		FieldParticipants:  []string{"a", "b"},
		FieldLastMessage:   "yo",
		FieldLastTimestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, chat.Participants)
	assert.Equal(t, "yo", chat.LastMessagePreview)
}

func TestDecodeComment(t *testing.T) {
	c, err := DecodeComment("cm1", map[string]any{
		FieldPostID:    "p1",
		FieldAuthor:    "u1",
		FieldUsername:  "ada",
		FieldText:      "nice fit",
		FieldTimestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", c.AuthorName)
	assert.Empty(t, c.AuthorAvatarURL)

	_, err = DecodeComment("cm1", map[string]any{FieldPostID: "p1"})
	assert.True(t, models.IsMalformed(err))
}

func TestEncodeDecodeCommentRoundTrip(t *testing.T) {
	orig := models.Comment{
		ID:         "cm1",
		PostID:     "p1",
		AuthorID:   "u1",
		AuthorName: "ada",
		Text:       "nice fit",
		CreatedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	decoded, err := DecodeComment(orig.ID, EncodeComment(orig))
	require.NoError(t, err)
	assert.Equal(t, orig, decoded)
}
