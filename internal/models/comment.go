package models

import (
	"strings"
	"time"
)

// Comment is a single user comment attached to a post.
//
// AuthorName and AuthorAvatarURL are denormalized snapshots taken at write
// time. They are intentionally stale: they are never refreshed when the
// author later renames themselves or changes their avatar.
type Comment struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	AuthorID        string    `json:"user_id"`
	AuthorName      string    `json:"username"`
	AuthorAvatarURL string    `json:"user_photo_url,omitempty"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
}

// CompareComments orders comments by CreatedAt ascending, ties broken by ID,
// which is the display order within a post.
func CompareComments(a, b Comment) int {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}
