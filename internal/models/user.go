package models

// UserSummary is a lightweight, eventually-consistent snapshot of a user
// profile. It is cached per id for the process lifetime so that feed cards,
// comment rows and chat rows do not refetch the same profile on every render.
type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
