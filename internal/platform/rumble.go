// Package platform holds the per-platform adapters: a URL pattern, a
// fetch-and-normalize step producing a domain.Post, and a render step
// producing a domain.Embed.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"time"

	"embedbot/internal/domain"
)

const (
	rumbleColor  = 0xFFA500
	rumbleFooter = "RUMBLE"

	defaultYtdlpBinary  = "yt-dlp"
	defaultYtdlpTimeout = 30 * time.Second
)

var rumblePattern = regexp.MustCompile(`(?i)(https?://(?:www\.)?rumble\.com/(?:embed/)?v[\w-]+[^ \n]*)`)

// Rumble resolves video links through yt-dlp, invoked as a black-box
// subprocess in single-JSON-object mode.
type Rumble struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

type RumbleConfig struct {
	Binary  string // path to yt-dlp
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewRumble(cfg RumbleConfig) *Rumble {
	if cfg.Binary == "" {
		cfg.Binary = defaultYtdlpBinary
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultYtdlpTimeout
	}
	return &Rumble{
		binary:  cfg.Binary,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

func (r *Rumble) ID() string { return "rumble" }

func (r *Rumble) Pattern() *regexp.Regexp { return rumblePattern }

// Normalize shells out to yt-dlp and maps its JSON output into a Post.
// Nonzero exit, malformed output, or a timeout all degrade to ErrNotFound so
// the dispatcher can skip this URL without aborting the message.
func (r *Rumble) Normalize(ctx context.Context, url string) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, "-j", "--no-playlist", "--no-warnings", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.logger.Warn("yt-dlp failed", "url", url, "err", err, "stderr", trimOutput(stderr.String()))
		return nil, domain.ErrNotFound
	}

	var meta struct {
		Title     string  `json:"title"`
		Thumbnail string  `json:"thumbnail"`
		Duration  float64 `json:"duration"`
		Uploader  string  `json:"uploader"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		r.logger.Warn("yt-dlp output not valid JSON", "url", url, "err", err)
		return nil, domain.ErrNotFound
	}

	post := &domain.Post{
		Title:           meta.Title,
		Author:          meta.Uploader,
		DurationSeconds: int(meta.Duration),
		AccentColor:     rumbleColor,
		PlatformID:      "rumble",
	}
	if meta.Thumbnail != "" {
		post.Images = []string{meta.Thumbnail}
	}
	return post, nil
}

func (r *Rumble) Render(post *domain.Post, url string) *domain.Embed {
	e := &domain.Embed{
		Color:  post.AccentColor,
		URL:    url,
		Title:  truncate(post.Title, 256),
		Footer: rumbleFooter,
	}
	if e.Title == "" {
		e.Title = "Untitled"
	}
	if len(post.Images) > 0 {
		e.Thumbnail = post.Images[0]
	}
	if post.DurationSeconds > 0 {
		e.Fields = append(e.Fields, domain.EmbedField{
			Name:   "Duration",
			Value:  FormatDuration(post.DurationSeconds),
			Inline: true,
		})
	}
	if post.Author != "" {
		e.Fields = append(e.Fields, domain.EmbedField{
			Name:   "Uploader",
			Value:  truncate(post.Author, 256),
			Inline: true,
		})
	}
	return e
}

// FormatDuration renders a second count as mm:ss, or h:mm:ss once the
// content is an hour or longer. Zero and negative values render as "00:00".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func trimOutput(s string) string {
	return truncate(s, 512)
}
