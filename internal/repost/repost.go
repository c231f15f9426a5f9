// Package repost delivers a rendered preview card under the original
// author's name and avatar through a channel webhook, deletes the source
// message, and degrades to a plain bot-authored post when impersonation is
// unavailable.
package repost

import (
	"context"
	"fmt"
	"log/slog"

	"embedbot/internal/domain"
	"embedbot/internal/metrics"
)

// AvatarCache is the slice of internal/avatar the reposter needs.
type AvatarCache interface {
	Ensure(ctx context.Context, userID, url string) error
}

type Reposter struct {
	gateway domain.Gateway
	avatars AvatarCache
	logger  *slog.Logger
}

type Config struct {
	Gateway domain.Gateway
	Avatars AvatarCache
	Logger  *slog.Logger
}

func New(cfg Config) *Reposter {
	return &Reposter{
		gateway: cfg.Gateway,
		avatars: cfg.Avatars,
		logger:  cfg.Logger,
	}
}

// Repost publishes the preview card. Every failure past webhook resolution
// is a side effect: logged, never escalated, never blocking the remaining
// steps.
func (r *Reposter) Repost(ctx context.Context, req domain.RepostRequest) {
	content := req.URL
	if req.Caption != "" {
		content = req.Caption + "\n" + req.URL
	}

	ref, err := r.gateway.ResolveWebhook(ctx, req.Msg.ChannelID)
	if err != nil {
		r.logger.Warn("webhook unavailable, posting as bot", "channel", req.Msg.ChannelID, "err", err)
		r.fallback(ctx, req, content)
		return
	}

	r.warmAvatar(ctx, req.Msg)

	err = r.gateway.SendWebhook(ctx, ref, domain.WebhookMessage{
		Content:   content,
		Username:  req.Msg.AuthorName,
		AvatarURL: req.Msg.AuthorAvatarURL,
		Embeds:    []*domain.Embed{req.Embed},
	})
	if err != nil {
		r.logger.Error("webhook send failed", "channel", req.Msg.ChannelID, "err", err)
	} else {
		metrics.Reposts.Inc()
	}

	r.deleteOriginal(ctx, req.Msg)

	// Remaining images ride the same impersonation identity, independently
	// of the primary send's outcome.
	if len(req.Embed.Extra) > 0 {
		embeds := make([]*domain.Embed, 0, len(req.Embed.Extra))
		for _, u := range req.Embed.Extra {
			embeds = append(embeds, &domain.Embed{Color: req.Embed.Color, Image: u})
		}
		followUp := domain.WebhookMessage{
			Username:  req.Msg.AuthorName,
			AvatarURL: req.Msg.AuthorAvatarURL,
			Embeds:    embeds,
		}
		if err := r.gateway.SendWebhook(ctx, ref, followUp); err != nil {
			r.logger.Warn("follow-up images failed", "channel", req.Msg.ChannelID, "err", err)
		}
	}
}

// fallback posts the card as the bot itself. Without a second webhook
// message to carry them, extra images downgrade to link fields.
func (r *Reposter) fallback(ctx context.Context, req domain.RepostRequest, content string) {
	embed := req.Embed
	if len(embed.Extra) > 0 {
		clone := *embed
		clone.Fields = append([]domain.EmbedField(nil), embed.Fields...)
		for i, u := range embed.Extra {
			clone.Fields = append(clone.Fields, domain.EmbedField{
				Name:   fmt.Sprintf("Image %d", i+2),
				Value:  fmt.Sprintf("[View](%s)", u),
				Inline: true,
			})
		}
		clone.Extra = nil
		embed = &clone
	}

	if err := r.gateway.SendChannel(ctx, req.Msg.ChannelID, content, []*domain.Embed{embed}); err != nil {
		r.logger.Error("fallback send failed", "channel", req.Msg.ChannelID, "err", err)
	} else {
		metrics.RepostFallback.Inc()
	}

	r.deleteOriginal(ctx, req.Msg)
}

// warmAvatar caches the author's avatar for later reuse. Fire-and-forget:
// a cache miss costs nothing but the original avatar URL still being used.
func (r *Reposter) warmAvatar(ctx context.Context, msg domain.Message) {
	if msg.AuthorAvatarURL == "" {
		return
	}
	if err := r.avatars.Ensure(ctx, msg.AuthorID, msg.AuthorAvatarURL); err != nil {
		r.logger.Warn("avatar cache write failed", "user", msg.AuthorID, "err", err)
	}
}

func (r *Reposter) deleteOriginal(ctx context.Context, msg domain.Message) {
	if !msg.Deletable {
		return
	}
	if err := r.gateway.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		r.logger.Warn("delete original failed", "channel", msg.ChannelID, "message", msg.ID, "err", err)
	}
}
