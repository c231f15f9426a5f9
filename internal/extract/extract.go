// Package extract pulls plain-text fields and image URLs out of loosely
// structured post pages. Everything here is best-effort: malformed markup or
// structured data degrades to an empty result, never an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxImages bounds the harvest; preview cards never need more.
const maxImages = 10

// Text returns the first non-empty trimmed text among the selector chain.
// Chains are ordered by specificity: structural class names before generic
// tags.
func Text(doc *goquery.Document, chain []string) string {
	for _, sel := range chain {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}

// MetaContent returns the trimmed content attribute of the first matching
// meta tag.
func MetaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).Attr("content")
	return strings.TrimSpace(v)
}

// contentSelectors are scanned in order for post imagery. Most common
// attachment containers first.
var contentSelectors = []string{
	".post-media img", ".truth-media img", ".media-attachments img",
	".status__media img", ".post-image", ".truth-image",
	".image-attachment", `article img:not([class*="avatar"]):not([class*="profile"])`,
}

var (
	backgroundURLPattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)
	imageExtPattern      = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)($|\?)`)
)

// Images harvests a bounded, deduplicated set of image URLs from a document.
// Sources in priority order: og:image/twitter:image metadata, JSON-LD image
// fields, content-area img elements (plus lazy-load data-src), and inline
// background-image styles as a last resort. A final filter keeps only URLs
// that look like images or live under a /media/ or /uploads/ path.
func Images(doc *goquery.Document) []string {
	var ordered []string
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		ordered = append(ordered, u)
	}

	// Metadata tags seed the set.
	if u, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		add(u)
	}
	if u, ok := doc.Find(`meta[name="twitter:image"]`).Attr("content"); ok {
		add(u)
	}

	// JSON-LD blocks, tolerating malformed payloads.
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data struct {
			Image json.RawMessage `json:"image"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil || len(data.Image) == 0 {
			return
		}
		for _, u := range structuredImageURLs(data.Image) {
			add(u)
		}
	})

	// Content-area scan, capped to keep DOM traversal cheap.
	found := 0
	for _, sel := range contentSelectors {
		if found >= maxImages {
			break
		}
		doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			if found >= maxImages {
				return
			}
			if src, ok := img.Attr("src"); ok && src != "" && !excludedSource(src) {
				add(src)
				found++
			}
			// Lazy-loaded images park the real URL in data-src.
			if ds, ok := img.Attr("data-src"); ok && ds != "" {
				add(ds)
				found++
			}
		})
	}

	// Background styles only when the scan came up short.
	if found < 5 {
		doc.Find(`[style*="background-image"]`).Each(func(_ int, el *goquery.Selection) {
			if found >= maxImages {
				return
			}
			style, _ := el.Attr("style")
			if m := backgroundURLPattern.FindStringSubmatch(style); m != nil {
				add(m[1])
				found++
			}
		})
	}

	out := make([]string, 0, len(ordered))
	for _, u := range ordered {
		if !keepImageURL(u) {
			continue
		}
		out = append(out, u)
		if len(out) >= maxImages {
			break
		}
	}
	return out
}

// structuredImageURLs unpacks a JSON-LD image field, which may be a URL
// string, an array of strings or {url} objects, or a single {url} object.
func structuredImageURLs(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	type urlObject struct {
		URL string `json:"url"`
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 5 {
			list = list[:5]
		}
		var out []string
		for _, item := range list {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, s)
				continue
			}
			var obj urlObject
			if err := json.Unmarshal(item, &obj); err == nil && obj.URL != "" {
				out = append(out, obj.URL)
			}
		}
		return out
	}

	var obj urlObject
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return []string{obj.URL}
	}
	return nil
}

// excludedSource rejects chrome that commonly sits inside content areas.
func excludedSource(src string) bool {
	return strings.Contains(src, "avatar") ||
		strings.Contains(src, "profile") ||
		strings.Contains(src, "icon")
}

// keepImageURL passes URLs with a recognized image extension (optionally
// followed by a query string) or a /media/ or /uploads/ path segment.
func keepImageURL(u string) bool {
	return imageExtPattern.MatchString(u) ||
		strings.Contains(u, "/media/") ||
		strings.Contains(u, "/uploads/")
}
