// Package outfits defines the contract for the remote outfit-analysis call.
// The call is opaque to this core: single-shot, never retried, never cached;
// loading/empty/error presentation is the caller's concern.
package outfits

import "context"

// Item is one labeled garment detected in an outfit image.
type Item struct {
	Label   string `json:"label"`
	Brand   string `json:"brand"`
	ShopURL string `json:"shopURL"`
}

// Scanner analyses the outfit in a post's image.
type Scanner interface {
	Scan(ctx context.Context, postID, imageURL string) ([]Item, error)
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context, postID, imageURL string) ([]Item, error)

func (f ScannerFunc) Scan(ctx context.Context, postID, imageURL string) ([]Item, error) {
	return f(ctx, postID, imageURL)
}
