package ticketing

import (
	"context"

	"github.com/wardenbot/warden/pkg/entities"
)

// PermissionSpec describes who can see a ticket channel: the requesting user
// plus the guild's staff role and user sets.
type PermissionSpec struct {
	UserID       string
	StaffRoleIDs []string
	StaffUserIDs []string
}

// ChannelProvisioner is the external collaborator that manages channels on
// the chat platform. Implementations live in the presentation layer; the
// lifecycle manager only sees this contract.
type ChannelProvisioner interface {
	// EnsureCategory returns the ID of the guild's ticket category, creating
	// it when categoryID is empty or no longer exists.
	EnsureCategory(ctx context.Context, guildID, categoryID string) (string, error)

	// Create creates a private ticket channel under the parent category and
	// returns its ID.
	Create(ctx context.Context, guildID, name, parentID string, spec PermissionSpec) (string, error)

	// Delete removes a channel.
	Delete(ctx context.Context, channelID string) error

	// FetchHistory returns up to limit messages from the channel, oldest
	// first.
	FetchHistory(ctx context.Context, channelID string, limit int) ([]entities.TranscriptMessage, error)
}

// Notifier delivers the transcript reference to the requester after a close.
// Delivery is best-effort; failures are logged and never propagated.
type Notifier interface {
	DeliverTranscript(ctx context.Context, userID string, ticket *entities.Ticket, transcriptID string) error
}
