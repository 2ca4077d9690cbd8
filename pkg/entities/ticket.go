package entities

import (
	"fmt"

	"github.com/wardenbot/warden/pkg/custom"
)

// TicketStatus is the lifecycle state of a ticket. Transitions are monotonic:
// open -> claimed -> closed, or open -> closed. There is no way out of closed.
type TicketStatus string

const (
	StatusOpen    TicketStatus = "open"
	StatusClaimed TicketStatus = "claimed"
	StatusClosed  TicketStatus = "closed"
)

// TicketPriority is the priority of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Ticket is a support conversation bound to one private channel and one
// requesting user.
type Ticket struct {
	// TicketID is the zero-padded sequence number within the guild, e.g.
	// "000042". Displayed to users with a leading '#'.
	TicketID string `json:"ticket_id" bson:"ticket_id"`

	// GuildID is the guild the ticket belongs to.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// ChannelID is the channel backing the ticket. Unique among non-closed
	// tickets.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// UserID is the user that requested the ticket.
	UserID string `json:"user_id" bson:"user_id"`

	// Username is the requesting user's name at creation time, used for the
	// channel name and transcripts.
	Username string `json:"username" bson:"username"`

	// Status is the lifecycle state.
	Status TicketStatus `json:"status" bson:"status"`

	// Priority defaults to normal.
	Priority TicketPriority `json:"priority" bson:"priority"`

	// Subject is an optional short description.
	Subject string `json:"subject,omitempty" bson:"subject,omitempty"`

	// ClaimedBy and ClaimedAt are set together when a staff member claims the
	// ticket, and are never set separately.
	ClaimedBy *string          `json:"claimed_by" bson:"claimed_by"`
	ClaimedAt *custom.Datetime `json:"claimed_at" bson:"claimed_at"`

	// ClosedBy and ClosedAt are set together when the ticket is closed.
	ClosedBy *string          `json:"closed_by" bson:"closed_by"`
	ClosedAt *custom.Datetime `json:"closed_at" bson:"closed_at"`

	// TranscriptID references the archived transcript artifact, set before the
	// ticket is marked closed.
	TranscriptID string `json:"transcript_id,omitempty" bson:"transcript_id,omitempty"`

	// CreatedAt is the time the ticket was created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`
}

// DisplayID is the user-facing ticket identifier.
func (t *Ticket) DisplayID() string {
	return "#" + t.TicketID
}

// ChannelName is the name given to the ticket's channel.
func (t *Ticket) ChannelName() string {
	return fmt.Sprintf("ticket-%s", t.TicketID)
}

// IsClosed reports whether the ticket has reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == StatusClosed
}
