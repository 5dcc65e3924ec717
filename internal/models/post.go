// Package models contains data structures for the application's domain models.
package models

import "time"

// Kind identifies an entity family inside the cache and the change stream.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindChat    Kind = "chat"
	KindMessage Kind = "message"
	KindUser    Kind = "user"
)

// Post represents a single outfit post as seen by the current viewer.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"user_id"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
	// LikeCount is never negative; malformed remote values decode to 0.
	LikeCount      int      `json:"like_count"`
	ViewerHasLiked bool     `json:"viewer_has_liked"`
	Hashtags       []string `json:"hashtags"`

	// Optional geo / weather captured at posting time.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Temp      *float64 `json:"temp,omitempty"`
}
