package domain

// Post is the normalized, platform-agnostic record of fetched content.
// Every field except AccentColor and PlatformID is optional; the zero value
// means "could not extract", not an error. An empty Post still renders.
type Post struct {
	Title            string
	Text             string
	Author           string // display name
	AuthorHandle     string // handle without the leading "@"
	AuthorAvatarURL  string
	PublishedDisplay string // human-readable date, or raw string when unparseable
	DurationSeconds  int
	Images           []string // ordered, deduplicated, at most 10
	AccentColor      int
	PlatformID       string
}

// Embed is the rendered, chat-facing projection of a Post. It is pure data:
// renderers produce it deterministically with no network or filesystem
// access.
type Embed struct {
	Color       int
	URL         string
	Title       string
	Description string
	Author      *EmbedAuthor
	Thumbnail   string
	Image       string
	// Extra holds image URLs that did not fit the primary embed. The
	// reposter sends them as follow-up embeds when impersonation is
	// available, and downgrades them to link fields otherwise.
	Extra  []string
	Footer string
	Fields []EmbedField
}

type EmbedAuthor struct {
	Name    string
	IconURL string
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}
