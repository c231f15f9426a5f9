package domain

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotFound signals that an adapter could not produce a Post for a URL
// that matched its pattern. The dispatcher treats it as "skip this adapter",
// not as a failure of the whole message.
var ErrNotFound = errors.New("post not found")

// Adapter is a platform-specific matcher + normalizer + renderer triple.
// Adapters are registered at startup and must be stateless; registration
// order is significant (first match wins).
type Adapter interface {
	ID() string
	Pattern() *regexp.Regexp

	// Normalize fetches and maps the linked content into a Post. Returning
	// ErrNotFound tells the dispatcher to keep scanning; any other error
	// aborts the message.
	Normalize(ctx context.Context, url string) (*Post, error)

	// Render projects a Post into an Embed. Must be pure.
	Render(post *Post, url string) *Embed
}

// RepostRequest carries everything the reposter needs for one matched link.
type RepostRequest struct {
	Msg     Message
	Adapter string
	URL     string
	Caption string // message text with the matched URL stripped
	Post    *Post
	Embed   *Embed
}
