package entities

// DefaultPrefix is the command prefix a guild starts with.
const DefaultPrefix = "t?"

// Guild is the persisted configuration for a guild.
type Guild struct {
	// ID is the ID of the guild.
	ID string `json:"id" bson:"id"`

	// Prefix is the prefix for text commands in the guild.
	Prefix string `json:"prefix" bson:"prefix"`

	// StaffRoleIDs are the roles whose members may manage tickets.
	StaffRoleIDs []string `json:"staff_role_ids" bson:"staff_role_ids"`

	// StaffUserIDs are the users who may manage tickets regardless of role.
	StaffUserIDs []string `json:"staff_user_ids" bson:"staff_user_ids"`

	// TicketCategoryID is the category that ticket channels are created under.
	// Empty until the first ticket lazily creates it.
	TicketCategoryID string `json:"ticket_category_id" bson:"ticket_category_id"`

	// LogChannelID is the channel that ticket events are logged to.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id"`

	// TicketCounter is the last issued ticket sequence number. It only ever
	// increases; allocation is an atomic increment in the store.
	TicketCounter int `json:"ticket_counter" bson:"ticket_counter"`

	// SetupChannelID is the channel holding the open-ticket message.
	SetupChannelID string `json:"setup_channel_id" bson:"setup_channel_id"`

	// OpenMessageID is the ID of the open-ticket message in the setup channel.
	OpenMessageID string `json:"open_message_id" bson:"open_message_id"`
}

// NewGuild returns the default configuration for a guild.
func NewGuild(id string) *Guild {
	return &Guild{
		ID:     id,
		Prefix: DefaultPrefix,
	}
}

// HasStaffRole reports whether the role is already in the staff role set.
func (g *Guild) HasStaffRole(roleID string) bool {
	for _, id := range g.StaffRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HasStaffUser reports whether the user is already in the staff user set.
func (g *Guild) HasStaffUser(userID string) bool {
	for _, id := range g.StaffUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
