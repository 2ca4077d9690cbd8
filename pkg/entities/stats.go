package entities

import "fmt"

// GuildStats is the live view of a guild's ticket counts, derived from the
// ticket store so it cannot drift from the actual rows.
type GuildStats struct {
	// Total is the number of tickets ever created in the guild.
	Total int64 `json:"total"`

	// Open is the number of tickets currently in the open state.
	Open int64 `json:"open"`

	// Claimed is the number of tickets currently claimed.
	Claimed int64 `json:"claimed"`

	// Closed is the number of closed tickets still retained.
	Closed int64 `json:"closed"`
}

// DailyStats is an append-only per-day history row for a guild.
type DailyStats struct {
	GuildID string `json:"guild_id" bson:"guild_id"`

	// Date is the UTC day the row covers, formatted 2006-01-02.
	Date string `json:"date" bson:"date"`

	TicketsCreated int `json:"tickets_created" bson:"tickets_created"`
	TicketsClaimed int `json:"tickets_claimed" bson:"tickets_claimed"`
	TicketsClosed  int `json:"tickets_closed" bson:"tickets_closed"`
}

// StatsDelta is a set of non-negative increments applied to a guild's daily
// history row.
type StatsDelta struct {
	Created int
	Claimed int
	Closed  int
}

// Validate rejects negative deltas. History rows only ever count upward; a
// negative delta is a logic error in the caller, not something to clamp.
func (d StatsDelta) Validate() error {
	if d.Created < 0 || d.Claimed < 0 || d.Closed < 0 {
		return fmt.Errorf("negative stats delta: %+v", d)
	}
	return nil
}
