package remote

import (
	"time"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
)

// Remote field names, shared by codecs, queries and partial updates.
const (
	FieldAuthor        = "userId"
	FieldImageURL      = "imageURL"
	FieldCaption       = "caption"
	FieldTimestamp     = "timestamp"
	FieldLikes         = "likes"
	FieldIsLiked       = "isLiked"
	FieldLikedBy       = "likedBy"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
	FieldTemp          = "temp"
	FieldHashtags      = "hashtags"
	FieldText          = "text"
	FieldUsername      = "username"
	FieldUserPhotoURL  = "userPhotoURL"
	FieldPostID        = "postId"
	FieldSenderID      = "senderId"
	FieldParticipants  = "participants"
	FieldLastMessage   = "lastMessage"
	FieldLastTimestamp = "lastTimestamp"
	FieldDisplayName   = "displayName"
	FieldAvatarURL     = "avatarURL"
)

// DecodePost maps a raw post document into a Post for the given viewer.
// Core fields are required; a missing or malformed likes value decodes to 0,
// never to an "unknown" third state. ViewerHasLiked prefers the likedBy
// array and falls back to the legacy isLiked flag.
func DecodePost(id string, d map[string]any, viewerID string) (models.Post, error) {
	author, ok := asString(d[FieldAuthor])
	if !ok {
		return models.Post{}, models.NewMalformedError("post", "missing userId")
	}
	imageURL, ok := asString(d[FieldImageURL])
	if !ok {
		return models.Post{}, models.NewMalformedError("post", "missing imageURL")
	}
	caption, ok := asString(d[FieldCaption])
	if !ok {
		return models.Post{}, models.NewMalformedError("post", "missing caption")
	}
	createdAt, ok := asTime(d[FieldTimestamp])
	if !ok {
		return models.Post{}, models.NewMalformedError("post", "missing timestamp")
	}

	likes, _ := asInt(d[FieldLikes])
	if likes < 0 {
		likes = 0
	}

	liked := false
	if likedBy, ok := asStringSlice(d[FieldLikedBy]); ok {
		if viewerID != "" {
			for _, uid := range likedBy {
				if uid == viewerID {
					liked = true
					break
				}
			}
		}
	} else if b, ok := d[FieldIsLiked].(bool); ok {
		liked = b
	}

	hashtags, _ := asStringSlice(d[FieldHashtags])

	return models.Post{
		ID:             id,
		AuthorID:       author,
		ImageURL:       imageURL,
		Caption:        caption,
		CreatedAt:      createdAt,
		LikeCount:      likes,
		ViewerHasLiked: liked,
		Hashtags:       hashtags,
		Latitude:       asFloatPtr(d[FieldLatitude]),
		Longitude:      asFloatPtr(d[FieldLongitude]),
		Temp:           asFloatPtr(d[FieldTemp]),
	}, nil
}

// DecodeComment maps a raw comment document. The avatar URL is optional;
// everything else is required.
func DecodeComment(id string, d map[string]any) (models.Comment, error) {
	postID, ok := asString(d[FieldPostID])
	if !ok {
		return models.Comment{}, models.NewMalformedError("comment", "missing postId")
	}
	author, ok := asString(d[FieldAuthor])
	if !ok {
		return models.Comment{}, models.NewMalformedError("comment", "missing userId")
	}
	username, ok := asString(d[FieldUsername])
	if !ok {
		return models.Comment{}, models.NewMalformedError("comment", "missing username")
	}
	text, ok := asString(d[FieldText])
	if !ok {
		return models.Comment{}, models.NewMalformedError("comment", "missing text")
	}
	createdAt, ok := asTime(d[FieldTimestamp])
	if !ok {
		return models.Comment{}, models.NewMalformedError("comment", "missing timestamp")
	}
	avatar, _ := asString(d[FieldUserPhotoURL])

	return models.Comment{
		ID:              id,
		PostID:          postID,
		AuthorID:        author,
		AuthorName:      username,
		AuthorAvatarURL: avatar,
		Text:            text,
		CreatedAt:       createdAt,
	}, nil
}

// DecodeChat maps a raw chat document.
func DecodeChat(id string, d map[string]any) (models.Chat, error) {
	participants, ok := asStringSlice(d[FieldParticipants])
	if !ok || len(participants) != 2 {
		return models.Chat{}, models.NewMalformedError("chat", "participants must be a pair")
	}
	lastMessage, _ := asString(d[FieldLastMessage])
	lastAt, ok := asTime(d[FieldLastTimestamp])
	if !ok {
		return models.Chat{}, models.NewMalformedError("chat", "missing lastTimestamp")
	}
	return models.Chat{
		ID:                 id,
		Participants:       participants,
		LastMessagePreview: lastMessage,
		LastMessageAt:      lastAt,
	}, nil
}

// DecodeMessage maps a raw message document belonging to chatID. Exactly one
// of text and postId must be present.
func DecodeMessage(id, chatID string, d map[string]any) (models.Message, error) {
	sender, ok := asString(d[FieldSenderID])
	if !ok {
		return models.Message{}, models.NewMalformedError("message", "missing senderId")
	}
	createdAt, ok := asTime(d[FieldTimestamp])
	if !ok {
		return models.Message{}, models.NewMalformedError("message", "missing timestamp")
	}
	msg := models.Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  sender,
		CreatedAt: createdAt,
	}
	if text, ok := asString(d[FieldText]); ok {
		msg.Text = &text
	}
	if postID, ok := asString(d[FieldPostID]); ok {
		msg.SharedPostID = &postID
	}
	if !msg.Valid() {
		return models.Message{}, models.NewMalformedError("message", "exactly one of text and postId must be set")
	}
	return msg, nil
}

// DecodeUserSummary maps a raw user document into its lightweight summary.
func DecodeUserSummary(id string, d map[string]any) (models.UserSummary, error) {
	name, ok := asString(d[FieldDisplayName])
	if !ok {
		return models.UserSummary{}, models.NewMalformedError("user", "missing displayName")
	}
	avatar, _ := asString(d[FieldAvatarURL])
	return models.UserSummary{ID: id, DisplayName: name, AvatarURL: avatar}, nil
}

// EncodeComment builds the wire shape for a comment create.
func EncodeComment(c models.Comment) map[string]any {
	return map[string]any{
		"id":              c.ID,
		FieldPostID:       c.PostID,
		FieldAuthor:       c.AuthorID,
		FieldUsername:     c.AuthorName,
		FieldUserPhotoURL: c.AuthorAvatarURL,
		FieldText:         c.Text,
		FieldTimestamp:    c.CreatedAt,
	}
}

// EncodeMessage builds the wire shape for a message create.
func EncodeMessage(m models.Message) map[string]any {
	data := map[string]any{
		FieldSenderID:  m.SenderID,
		FieldTimestamp: m.CreatedAt,
	}
	if m.Text != nil {
		data[FieldText] = *m.Text
	}
	if m.SharedPostID != nil {
		data[FieldPostID] = *m.SharedPostID
	}
	return data
}

// EncodeChat builds the wire shape for a chat create.
func EncodeChat(c models.Chat) map[string]any {
	return map[string]any{
		FieldParticipants:  c.Participants,
		FieldLastMessage:   c.LastMessagePreview,
		FieldLastTimestamp: c.LastMessageAt,
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), true
	case string:
		// Documents that round-trip through JSON carry RFC 3339 strings.
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func asFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

func asStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
