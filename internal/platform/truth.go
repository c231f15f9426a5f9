package platform

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"embedbot/internal/domain"
	"embedbot/internal/extract"
)

const (
	truthColor  = 0xFF4500
	truthFooter = "TRUTH SOCIAL"
	truthOrigin = "https://truthsocial.com/"

	degradedText = "Could not fetch post content."
)

var truthPattern = regexp.MustCompile(`(?i)(https?://(?:www\.)?truthsocial\.com/@[\w.]+/posts/\d+[^ \n]*)`)

// Fetcher is the slice of the fetch client the Truth adapter needs.
type Fetcher interface {
	HTML(ctx context.Context, url string, extra map[string]string) ([]byte, error)
}

// Truth scrapes a post page directly. Its normalize step never fails hard:
// fetch or parse trouble yields a degraded Post carrying a placeholder text,
// so the dispatcher always gets a Post for a matched URL.
type Truth struct {
	fetcher   Fetcher
	selectors Selectors
	logger    *slog.Logger
}

type TruthConfig struct {
	Fetcher   Fetcher
	Selectors Selectors // zero value means built-in chains
	Logger    *slog.Logger
}

func NewTruth(cfg TruthConfig) *Truth {
	if cfg.Selectors.empty() {
		cfg.Selectors = DefaultSelectors()
	}
	return &Truth{
		fetcher:   cfg.Fetcher,
		selectors: cfg.Selectors,
		logger:    cfg.Logger,
	}
}

func (t *Truth) ID() string { return "truthsocial" }

func (t *Truth) Pattern() *regexp.Regexp { return truthPattern }

func (t *Truth) Normalize(ctx context.Context, url string) (*domain.Post, error) {
	handle := handleFromURL(url)

	body, err := t.fetcher.HTML(ctx, url, map[string]string{"Referer": truthOrigin})
	if err != nil {
		t.logger.Warn("truth fetch failed", "url", url, "err", err)
		return t.degraded(handle), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.logger.Warn("truth parse failed", "url", url, "err", err)
		return t.degraded(handle), nil
	}

	text := extract.Text(doc, t.selectors.Content)
	if text == "" {
		text = extract.MetaContent(doc, `meta[property="og:description"]`)
	}

	stamp := extract.Text(doc, t.selectors.Timestamp)
	if stamp == "" {
		stamp = extract.MetaContent(doc, `meta[property="article:published_time"]`)
	}

	author := extract.Text(doc, t.selectors.Author)
	if author == "" {
		author = handle
	}

	var avatar string
	if sel := doc.Find(strings.Join(t.selectors.Avatar, ", ")).First(); sel.Length() > 0 {
		avatar, _ = sel.Attr("src")
	}

	return &domain.Post{
		Text:             text,
		Author:           author,
		AuthorHandle:     handle,
		AuthorAvatarURL:  avatar,
		PublishedDisplay: formatStamp(stamp),
		Images:           extract.Images(doc),
		AccentColor:      truthColor,
		PlatformID:       "truthsocial",
	}, nil
}

func (t *Truth) degraded(handle string) *domain.Post {
	return &domain.Post{
		Text:         degradedText,
		AuthorHandle: handle,
		AccentColor:  truthColor,
		PlatformID:   "truthsocial",
	}
}

func (t *Truth) Render(post *domain.Post, url string) *domain.Embed {
	name := post.Author
	if name == "" {
		name = "@" + post.AuthorHandle
	}

	e := &domain.Embed{
		Color:  post.AccentColor,
		URL:    url,
		Title:  "Truth by @" + post.AuthorHandle,
		Author: &domain.EmbedAuthor{Name: name, IconURL: post.AuthorAvatarURL},
		Footer: truthFooter,
	}
	if post.Text != "" {
		e.Description = ellipsize(post.Text, 1000)
	}
	if post.PublishedDisplay != "" {
		e.Fields = append(e.Fields, domain.EmbedField{
			Name:   "Posted",
			Value:  post.PublishedDisplay,
			Inline: true,
		})
	}
	if len(post.Images) > 0 {
		e.Image = post.Images[0]
		extra := post.Images[1:]
		if len(extra) > 2 {
			extra = extra[:2]
		}
		e.Extra = append([]string(nil), extra...)
	}
	return e
}

// handleFromURL pulls the "@handle" path segment following the hostname.
// Returns "unknown" when the URL does not carry one.
func handleFromURL(url string) string {
	parts := strings.Split(url, "/")
	for i, p := range parts {
		if strings.Contains(p, "truthsocial.com") && i+1 < len(parts) {
			if h := strings.TrimPrefix(parts[i+1], "@"); h != "" {
				return h
			}
		}
	}
	return "unknown"
}

// stampLayouts are tried in order when parsing a scraped timestamp.
var stampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// formatStamp turns a scraped timestamp into a display date. Unparseable
// input passes through unchanged.
func formatStamp(stamp string) string {
	stamp = strings.TrimSpace(stamp)
	if stamp == "" {
		return ""
	}
	for _, layout := range stampLayouts {
		if ts, err := time.Parse(layout, stamp); err == nil {
			return ts.Format("Jan 2, 2006")
		}
	}
	return stamp
}

func ellipsize(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Adapters builds the default adapter registry in priority order.
func Adapters(rumble *Rumble, truth *Truth) []domain.Adapter {
	var out []domain.Adapter
	if rumble != nil {
		out = append(out, rumble)
	}
	if truth != nil {
		out = append(out, truth)
	}
	return out
}
