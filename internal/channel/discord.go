// Package channel connects the bot to its chat gateway.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"embedbot/internal/bus"
	"embedbot/internal/domain"
)

const (
	webhookName   = "LinkEmbedder"
	webhookReason = "Used for seamless link embedding"
)

// Discord owns the gateway session. It publishes inbound messages on the bus
// and implements domain.Gateway for the outbound side.
type Discord struct {
	token   string
	guildID string
	session *discordgo.Session
	logger  *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string // optional: restrict to a specific guild
	Logger  *slog.Logger
}

// NewDiscord creates a new Discord channel handler.
func NewDiscord(cfg DiscordConfig) *Discord {
	return &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		logger:  cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord using a bot token and begins listening. Blocks
// until ctx is cancelled.
func (d *Discord) Start(ctx context.Context, b *bus.InMemoryBus) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore bot's own messages.
		if m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}
		if d.guildID != "" && m.GuildID != d.guildID {
			return
		}

		d.logger.Info("discord message received",
			"author", m.Author.Username,
			"channel_id", m.ChannelID,
			"content_len", len(m.Content),
		)

		b.Publish(toMessage(m))
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// toMessage maps a gateway event to the immutable domain snapshot.
func toMessage(m *discordgo.MessageCreate) domain.Message {
	name := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}
	return domain.Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		Content:         m.Content,
		AuthorID:        m.Author.ID,
		AuthorName:      name,
		AuthorAvatarURL: m.Author.AvatarURL("128"),
		IsBot:           m.Author.Bot,
		// Others' messages are only deletable in guild channels.
		Deletable: m.GuildID != "",
		Timestamp: time.Now(),
	}
}

// ResolveWebhook finds this bot's webhook in a channel, creating one when
// absent. Not compare-and-swap safe: two concurrent first messages may each
// create a webhook, which is wasteful but harmless.
func (d *Discord) ResolveWebhook(ctx context.Context, channelID string) (domain.WebhookRef, error) {
	hooks, err := d.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.WebhookRef{}, fmt.Errorf("list webhooks: %w", err)
	}

	botID := d.session.State.User.ID
	for _, wh := range hooks {
		if wh.User != nil && wh.User.ID == botID {
			return domain.WebhookRef{ID: wh.ID, Token: wh.Token, ChannelID: channelID}, nil
		}
	}

	wh, err := d.session.WebhookCreate(channelID, webhookName, "",
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(webhookReason))
	if err != nil {
		return domain.WebhookRef{}, fmt.Errorf("create webhook: %w", err)
	}
	return domain.WebhookRef{ID: wh.ID, Token: wh.Token, ChannelID: channelID}, nil
}

// SendWebhook posts through the impersonation endpoint with per-message
// username and avatar overrides.
func (d *Discord) SendWebhook(ctx context.Context, ref domain.WebhookRef, msg domain.WebhookMessage) error {
	params := &discordgo.WebhookParams{
		Content:   msg.Content,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		Embeds:    toDiscordEmbeds(msg.Embeds),
	}
	if _, err := d.session.WebhookExecute(ref.ID, ref.Token, false, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("webhook execute: %w", err)
	}
	return nil
}

// SendChannel posts as the bot itself.
func (d *Discord) SendChannel(ctx context.Context, channelID, content string, embeds []*domain.Embed) error {
	send := &discordgo.MessageSend{
		Content: content,
		Embeds:  toDiscordEmbeds(embeds),
	}
	if _, err := d.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("channel send: %w", err)
	}
	return nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func toDiscordEmbeds(embeds []*domain.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		if e == nil {
			continue
		}
		out = append(out, toDiscordEmbed(e))
	}
	return out
}

func toDiscordEmbed(e *domain.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		URL:         e.URL,
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Author != nil {
		out.Author = &discordgo.MessageEmbedAuthor{Name: e.Author.Name, IconURL: e.Author.IconURL}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if e.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Image != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.Image}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}
