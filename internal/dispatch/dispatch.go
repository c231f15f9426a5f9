// Package dispatch matches inbound messages against the registered platform
// adapters and drives the fetch → normalize → render → repost pipeline.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"embedbot/internal/domain"
	"embedbot/internal/metrics"
)

// Reposter delivers a rendered preview card; implemented by internal/repost.
type Reposter interface {
	Repost(ctx context.Context, req domain.RepostRequest)
}

// Dispatcher scans message text against each adapter's pattern in fixed
// registration order and hands the first match to the reposter. At most one
// adapter processes a given message.
type Dispatcher struct {
	adapters []domain.Adapter
	reposter Reposter
	gateway  domain.Gateway
	logger   *slog.Logger
}

type Config struct {
	Adapters []domain.Adapter
	Reposter Reposter
	Gateway  domain.Gateway
	Logger   *slog.Logger
}

func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		adapters: cfg.Adapters,
		reposter: cfg.Reposter,
		gateway:  cfg.Gateway,
		logger:   cfg.Logger,
	}
}

// Run drains the inbound channel until it closes or ctx is cancelled. Each
// message is handled in its own goroutine: multiple messages may be in
// flight concurrently, with no ordering guarantee between them.
func (d *Dispatcher) Run(ctx context.Context, inbound <-chan domain.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			go d.Handle(ctx, msg)
		}
	}
}

// Handle processes one message end to end. Within a message the steps are
// strictly sequential.
func (d *Dispatcher) Handle(ctx context.Context, msg domain.Message) {
	if msg.IsBot {
		return
	}
	// Cheap prefilter before any regex work.
	if !strings.Contains(msg.Content, "http") {
		return
	}
	metrics.MessagesSeen.Inc()

	for _, a := range d.adapters {
		url := a.Pattern().FindString(msg.Content)
		if url == "" {
			continue
		}

		d.logger.Info("link matched", "platform", a.ID(), "url", url)
		metrics.LinksMatched.Inc()

		post, err := a.Normalize(ctx, url)
		if errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("no post for url, trying next platform", "platform", a.ID(), "url", url)
			continue
		}
		if err != nil {
			d.logger.Error("normalize failed", "platform", a.ID(), "url", url, "err", err)
			metrics.DispatchErrors.Inc()
			d.notifyError(ctx, msg.ChannelID, url)
			return
		}

		caption := strings.TrimSpace(strings.Replace(msg.Content, url, "", 1))
		embed := a.Render(post, url)

		d.reposter.Repost(ctx, domain.RepostRequest{
			Msg:     msg,
			Adapter: a.ID(),
			URL:     url,
			Caption: caption,
			Post:    post,
			Embed:   embed,
		})
		return
	}
}

// notifyError posts a best-effort user-visible notice; its own failure is
// only logged.
func (d *Dispatcher) notifyError(ctx context.Context, channelID, url string) {
	if err := d.gateway.SendChannel(ctx, channelID, "⚠️ Error processing link: "+url, nil); err != nil {
		d.logger.Error("error notice failed", "channel", channelID, "err", err)
	}
}
