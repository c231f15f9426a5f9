package domain

import "context"

// WebhookRef identifies a channel-scoped impersonation endpoint.
type WebhookRef struct {
	ID        string
	Token     string
	ChannelID string
}

// WebhookMessage is one impersonated send: content posted under an arbitrary
// display name and avatar.
type WebhookMessage struct {
	Content   string
	Username  string
	AvatarURL string
	Embeds    []*Embed
}

// Gateway is the outbound surface of the chat connection. The Discord
// channel implements it; tests substitute fakes.
type Gateway interface {
	// ResolveWebhook finds the bot-owned webhook for a channel, creating
	// one if absent. Lookup-or-create is not atomic; a duplicate created by
	// two concurrent first messages is harmless.
	ResolveWebhook(ctx context.Context, channelID string) (WebhookRef, error)

	SendWebhook(ctx context.Context, ref WebhookRef, msg WebhookMessage) error

	// SendChannel posts as the bot itself, without attribution.
	SendChannel(ctx context.Context, channelID, content string, embeds []*Embed) error

	DeleteMessage(ctx context.Context, channelID, messageID string) error
}
