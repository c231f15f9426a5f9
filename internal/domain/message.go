package domain

import "time"

// Message is an immutable snapshot of one inbound gateway event. It is
// created by the channel, published on the bus, and consumed once by the
// dispatcher.
type Message struct {
	ID              string
	ChannelID       string
	GuildID         string
	Content         string
	AuthorID        string
	AuthorName      string // nickname when set, username otherwise
	AuthorAvatarURL string
	IsBot           bool
	Deletable       bool
	Timestamp       time.Time
}
