package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"embedbot/internal/domain"
)

type fakeFetcher struct {
	body    string
	err     error
	referer string
	calls   int
}

func (f *fakeFetcher) HTML(_ context.Context, _ string, extra map[string]string) ([]byte, error) {
	f.calls++
	f.referer = extra["Referer"]
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

const truthFixture = `<!doctype html>
<html><head>
<meta property="og:description" content="meta fallback">
<meta property="article:published_time" content="2024-03-05T12:30:00Z">
</head><body>
<div class="status__content">Big announcement today</div>
<div class="post-author">Real Name</div>
<div class="avatar"><img src="https://t/avatars/u.png"></div>
<div class="media-attachments">
  <img src="https://t/media/one.jpg">
  <img src="https://t/media/two.jpg">
  <img src="https://t/media/three.jpg">
  <img src="https://t/media/four.jpg">
</div>
</body></html>`

func TestTruthPattern(t *testing.T) {
	tr := NewTruth(TruthConfig{Fetcher: &fakeFetcher{}, Logger: testLogger()})

	cases := []struct {
		text string
		want string
	}{
		{"see https://truthsocial.com/@realperson/posts/1234567890", "https://truthsocial.com/@realperson/posts/1234567890"},
		{"https://www.truthsocial.com/@a.b/posts/42?x=1", "https://www.truthsocial.com/@a.b/posts/42?x=1"},
		{"https://truthsocial.com/@user", ""},
	}
	for _, c := range cases {
		if got := tr.Pattern().FindString(c.text); got != c.want {
			t.Errorf("FindString(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestTruthNormalize_FullPage(t *testing.T) {
	f := &fakeFetcher{body: truthFixture}
	tr := NewTruth(TruthConfig{Fetcher: f, Logger: testLogger()})

	post, err := tr.Normalize(context.Background(), "https://truthsocial.com/@realperson/posts/123")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.referer != truthOrigin {
		t.Errorf("referer = %q, want platform origin", f.referer)
	}
	if post.Text != "Big announcement today" {
		t.Errorf("text = %q", post.Text)
	}
	if post.Author != "Real Name" || post.AuthorHandle != "realperson" {
		t.Errorf("author = %q / %q", post.Author, post.AuthorHandle)
	}
	if post.AuthorAvatarURL != "https://t/avatars/u.png" {
		t.Errorf("avatar = %q", post.AuthorAvatarURL)
	}
	if post.PublishedDisplay != "Mar 5, 2024" {
		t.Errorf("published = %q", post.PublishedDisplay)
	}
	if len(post.Images) != 4 || post.Images[0] != "https://t/media/one.jpg" {
		t.Errorf("images = %v", post.Images)
	}
	if post.AccentColor != truthColor || post.PlatformID != "truthsocial" {
		t.Errorf("identity fields wrong: %+v", post)
	}
}

func TestTruthNormalize_MetaFallbacks(t *testing.T) {
	f := &fakeFetcher{body: `<html><head>
		<meta property="og:description" content="from og">
		<meta property="article:published_time" content="not a date">
	</head><body></body></html>`}
	tr := NewTruth(TruthConfig{Fetcher: f, Logger: testLogger()})

	post, err := tr.Normalize(context.Background(), "https://truthsocial.com/@someone/posts/9")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if post.Text != "from og" {
		t.Errorf("text = %q, want og:description fallback", post.Text)
	}
	// Unparseable dates pass through raw.
	if post.PublishedDisplay != "not a date" {
		t.Errorf("published = %q", post.PublishedDisplay)
	}
	// Display name falls back to the URL-derived handle.
	if post.Author != "someone" {
		t.Errorf("author = %q", post.Author)
	}
}

func TestTruthNormalize_FetchFailureDegrades(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	tr := NewTruth(TruthConfig{Fetcher: f, Logger: testLogger()})

	post, err := tr.Normalize(context.Background(), "https://truthsocial.com/@realperson/posts/123")
	if err != nil {
		t.Fatalf("soft failure must not return an error, got %v", err)
	}
	want := &domain.Post{
		Text:         degradedText,
		AuthorHandle: "realperson",
		AccentColor:  truthColor,
		PlatformID:   "truthsocial",
	}
	if !reflect.DeepEqual(post, want) {
		t.Errorf("post = %+v, want %+v", post, want)
	}
}

func TestHandleFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://truthsocial.com/@realperson/posts/123", "realperson"},
		{"https://www.truthsocial.com/@a.b/posts/42", "a.b"},
		{"https://truthsocial.com/", "unknown"},
		{"garbage", "unknown"},
	}
	for _, c := range cases {
		if got := handleFromURL(c.url); got != c.want {
			t.Errorf("handleFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestTruthRender(t *testing.T) {
	tr := NewTruth(TruthConfig{Fetcher: &fakeFetcher{}, Logger: testLogger()})
	post := &domain.Post{
		Text:             "hello",
		Author:           "Real Name",
		AuthorHandle:     "realperson",
		AuthorAvatarURL:  "https://t/avatars/u.png",
		PublishedDisplay: "Mar 5, 2024",
		Images: []string{
			"https://t/media/1.jpg", "https://t/media/2.jpg",
			"https://t/media/3.jpg", "https://t/media/4.jpg",
		},
		AccentColor: truthColor,
		PlatformID:  "truthsocial",
	}

	e := tr.Render(post, "https://truthsocial.com/@realperson/posts/123")
	if e.Title != "Truth by @realperson" {
		t.Errorf("title = %q", e.Title)
	}
	if e.Author == nil || e.Author.Name != "Real Name" || e.Author.IconURL != "https://t/avatars/u.png" {
		t.Errorf("author = %+v", e.Author)
	}
	if e.Description != "hello" {
		t.Errorf("description = %q", e.Description)
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "Posted" || e.Fields[0].Value != "Mar 5, 2024" {
		t.Errorf("fields = %+v", e.Fields)
	}
	if e.Image != "https://t/media/1.jpg" {
		t.Errorf("image = %q", e.Image)
	}
	// At most two follow-up images.
	if !reflect.DeepEqual(e.Extra, []string{"https://t/media/2.jpg", "https://t/media/3.jpg"}) {
		t.Errorf("extra = %v", e.Extra)
	}
}

func TestTruthRender_LongTextEllipsized(t *testing.T) {
	tr := NewTruth(TruthConfig{Fetcher: &fakeFetcher{}, Logger: testLogger()})
	post := &domain.Post{
		Text:         strings.Repeat("a", 1500),
		AuthorHandle: "x",
		AccentColor:  truthColor,
		PlatformID:   "truthsocial",
	}

	e := tr.Render(post, "https://truthsocial.com/@x/posts/1")
	if len(e.Description) != 1000 {
		t.Errorf("description length = %d, want 1000", len(e.Description))
	}
	if !strings.HasSuffix(e.Description, "...") {
		t.Error("long description should end with ellipsis")
	}
}

func TestTruthRender_NoDisplayNameUsesHandle(t *testing.T) {
	tr := NewTruth(TruthConfig{Fetcher: &fakeFetcher{}, Logger: testLogger()})
	post := &domain.Post{AuthorHandle: "ghost", AccentColor: truthColor, PlatformID: "truthsocial"}

	e := tr.Render(post, "https://truthsocial.com/@ghost/posts/1")
	if e.Author == nil || e.Author.Name != "@ghost" {
		t.Errorf("author = %+v", e.Author)
	}
}

func TestLoadSelectors_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	data := "content:\n  - .new-content\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSelectors(path)
	if err != nil {
		t.Fatalf("LoadSelectors: %v", err)
	}
	if len(s.Content) != 1 || s.Content[0] != ".new-content" {
		t.Errorf("content = %v", s.Content)
	}
	// Chains absent from the file keep their defaults.
	if !reflect.DeepEqual(s.Author, DefaultSelectors().Author) {
		t.Errorf("author = %v", s.Author)
	}
}

func TestLoadSelectors_BadYAMLIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	if err := os.WriteFile(path, []byte("content: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSelectors(path); err == nil {
		t.Fatal("expected parse error")
	}
}
