package entities

import "github.com/wardenbot/warden/pkg/custom"

// Attachment describes a file attached to a transcript message.
type Attachment struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
	Size int    `json:"size" bson:"size"`
}

// EmbedSnapshot is the part of an embed worth keeping in a transcript.
type EmbedSnapshot struct {
	Title       string `json:"title,omitempty" bson:"title,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	URL         string `json:"url,omitempty" bson:"url,omitempty"`
	Color       int    `json:"color,omitempty" bson:"color,omitempty"`
}

// MessageAuthor identifies the author of a transcript message.
type MessageAuthor struct {
	ID            string `json:"id" bson:"id"`
	Username      string `json:"username" bson:"username"`
	Discriminator string `json:"discriminator" bson:"discriminator"`
	Avatar        string `json:"avatar" bson:"avatar"`
}

// TranscriptMessage is one archived message belonging to exactly one ticket.
// Rows are append-only; they are written as messages arrive and backfilled at
// close time when capture missed the channel.
type TranscriptMessage struct {
	// TicketID and GuildID identify the owning ticket.
	TicketID string `json:"-" bson:"ticket_id"`
	GuildID  string `json:"-" bson:"guild_id"`

	MessageID   string          `json:"message_id" bson:"message_id"`
	Author      MessageAuthor   `json:"author" bson:"author"`
	Content     string          `json:"content" bson:"content"`
	Attachments []Attachment    `json:"attachments" bson:"attachments"`
	Embeds      []EmbedSnapshot `json:"embeds" bson:"embeds"`
	Timestamp   custom.Datetime `json:"timestamp" bson:"timestamp"`
}

// Transcript is the immutable snapshot of a ticket's message history produced
// when the ticket is archived. It is keyed by "<ticketID>-<closeEpochMillis>"
// and never mutated after creation.
type Transcript struct {
	ID          string              `json:"id"`
	TicketID    string              `json:"ticketId"`
	ChannelName string              `json:"channelName"`
	ChannelID   string              `json:"channelId"`
	GuildID     string              `json:"guildId"`
	UserID      string              `json:"userId"`
	CreatedAt   custom.Datetime     `json:"createdAt"`
	ClosedAt    custom.Datetime     `json:"closedAt"`
	Messages    []TranscriptMessage `json:"messages"`
}
