// Package ticketing implements the ticket lifecycle: creation, claiming,
// close confirmation and forced closure, with transcripts archived before any
// ticket reaches its closed state.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
)

const (
	// deleteGraceDelay is how long a closed ticket's channel stays visible
	// before deletion, so the closing message can be read.
	deleteGraceDelay = 5 * time.Second

	// retentionWindow is how long closed tickets are kept before the purge
	// sweep removes them and their messages.
	retentionWindow = 30 * 24 * time.Hour
)

// CloseRequest is the confirmation token returned by RequestClose. No state
// has been mutated; the close only happens on explicit confirmation.
type CloseRequest struct {
	Ticket      *entities.Ticket
	RequestedAt time.Time
}

// CloseResult is the outcome of a confirmed or forced close.
type CloseResult struct {
	Ticket       *entities.Ticket
	TranscriptID string

	// DeleteAfter is the grace delay before the channel is deleted.
	DeleteAfter time.Duration
}

// Manager coordinates the ticket state machine against the ticket store, the
// channel provisioner, the stats aggregator and the transcript archiver.
// Transitions for one ticket are serialised on its channel ID; creation is
// serialised per guild so the sequence increment and the single-open-ticket
// check form one atomic unit.
type Manager struct {
	// l is the logger.
	l *slog.Logger

	// guilds and tickets are the durable source of truth.
	guilds  dataaccess.GuildDal
	tickets dataaccess.TicketDal

	// stats records transitions and serves derived counts.
	stats *Aggregator

	// archiver stores transcripts before closes commit.
	archiver *Archiver

	// provisioner manages channels on the chat platform.
	provisioner ChannelProvisioner

	// notifier delivers transcript references to requesters, best effort.
	notifier Notifier

	guildLocks   *keyedMutex
	channelLocks *keyedMutex

	// pendingMu guards pendingClose, the confirmation tokens handed out by
	// RequestClose and cleared by CancelClose or a commit.
	pendingMu    sync.Mutex
	pendingClose map[string]*CloseRequest

	// timersMu guards deleteTimers, the scheduled channel deletions.
	timersMu     sync.Mutex
	deleteTimers map[string]*time.Timer

	// deleteDelay is deleteGraceDelay unless overridden in tests.
	deleteDelay time.Duration
}

// NewManager creates a new lifecycle manager.
func NewManager(
	l *slog.Logger,
	guilds dataaccess.GuildDal,
	tickets dataaccess.TicketDal,
	stats *Aggregator,
	archiver *Archiver,
	provisioner ChannelProvisioner,
	notifier Notifier,
) *Manager {
	return &Manager{
		l:            l,
		guilds:       guilds,
		tickets:      tickets,
		stats:        stats,
		archiver:     archiver,
		provisioner:  provisioner,
		notifier:     notifier,
		guildLocks:   newKeyedMutex(),
		channelLocks: newKeyedMutex(),
		pendingClose: make(map[string]*CloseRequest),
		deleteTimers: make(map[string]*time.Timer),
		deleteDelay:  deleteGraceDelay,
	}
}

// RequestCreate opens a new ticket for the user: allocates the next sequence
// number, provisions a private channel visible to the requester and the staff
// sets, and inserts the open ticket row. A user with an existing non-closed
// ticket in the guild is rejected with ErrAlreadyOpen.
func (m *Manager) RequestCreate(ctx context.Context, guildID, userID, username string) (*entities.Ticket, error) {
	unlock := m.guildLocks.Lock(guildID)
	defer unlock()

	guild, err := m.guilds.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	existing, err := m.tickets.GetOpenTicketByUser(ctx, guildID, userID)
	if err != nil && !errors.Is(err, dataaccess.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: ticket %s in channel %s", ErrAlreadyOpen, existing.DisplayID(), existing.ChannelID)
	}

	categoryID, err := m.provisioner.EnsureCategory(ctx, guildID, guild.TicketCategoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	if categoryID != guild.TicketCategoryID {
		guild.TicketCategoryID = categoryID
		if err := m.guilds.SaveGuild(ctx, guild); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
		}
	}

	seq, err := m.guilds.NextTicketSeq(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	ticket := &entities.Ticket{
		TicketID:  fmt.Sprintf("%06d", seq),
		GuildID:   guildID,
		UserID:    userID,
		Username:  username,
		Status:    entities.StatusOpen,
		Priority:  entities.PriorityNormal,
		CreatedAt: custom.Now(),
	}

	channelID, err := m.provisioner.Create(ctx, guildID, ticket.ChannelName(), categoryID, PermissionSpec{
		UserID:       userID,
		StaffRoleIDs: guild.StaffRoleIDs,
		StaffUserIDs: guild.StaffUserIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	ticket.ChannelID = channelID

	if err := m.tickets.CreateTicket(ctx, ticket); err != nil {
		// The channel exists but the row does not; remove the channel so a
		// retry does not strand an orphan.
		if delErr := m.provisioner.Delete(ctx, channelID); delErr != nil {
			m.l.Error("Error deleting channel after failed ticket insert",
				slog.String(logging.KeyChannelID, channelID),
				slog.String(logging.KeyError, delErr.Error()),
			)
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	m.stats.RecordCreated(ctx, guildID)

	m.l.Info("Ticket created",
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyTicketID, ticket.TicketID),
		slog.String(logging.KeyChannelID, channelID),
		slog.String(logging.KeyUserID, userID),
	)
	return ticket, nil
}

// Claim records the actor as the ticket's claimant. Claiming is a one-time
// event: any ticket that already has a claimant is rejected, including by the
// same actor. Authorization is the caller's concern (checked via the staff
// Directory before calling).
func (m *Manager) Claim(ctx context.Context, channelID, actorID string) (*entities.Ticket, error) {
	unlock := m.channelLocks.Lock(channelID)
	defer unlock()

	ticket, err := m.tickets.GetOpenTicketByChannel(ctx, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrNotATicketChannel
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if ticket.ClaimedBy != nil {
		return nil, fmt.Errorf("%w: by %s", ErrAlreadyClaimed, *ticket.ClaimedBy)
	}

	now := custom.Now()
	if err := m.tickets.ClaimTicket(ctx, channelID, actorID, now); errors.Is(err, dataaccess.ErrNotFound) {
		return nil, fmt.Errorf("%w", ErrAlreadyClaimed)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	ticket.Status = entities.StatusClaimed
	ticket.ClaimedBy = &actorID
	ticket.ClaimedAt = &now

	m.stats.RecordClaimed(ctx, ticket.GuildID)

	m.l.Info("Ticket claimed",
		slog.String(logging.KeyGuildID, ticket.GuildID),
		slog.String(logging.KeyTicketID, ticket.TicketID),
		slog.String(logging.KeyUserID, actorID),
	)
	return ticket, nil
}

// RequestClose returns a confirmation token for closing the ticket. Nothing
// is mutated; the close happens only on ConfirmClose.
func (m *Manager) RequestClose(ctx context.Context, channelID string) (*CloseRequest, error) {
	ticket, err := m.tickets.GetOpenTicketByChannel(ctx, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrNotATicketChannel
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	req := &CloseRequest{
		Ticket:      ticket,
		RequestedAt: time.Now().UTC(),
	}

	m.pendingMu.Lock()
	m.pendingClose[channelID] = req
	m.pendingMu.Unlock()

	return req, nil
}

// CancelClose clears a pending close confirmation. No ticket state changes
// and no transcript is produced. Returns the cleared request, or nil if none
// was pending.
func (m *Manager) CancelClose(channelID string) *CloseRequest {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	req := m.pendingClose[channelID]
	delete(m.pendingClose, channelID)
	return req
}

// ConfirmClose commits a close: the transcript is archived first, then the
// ticket row is flipped to closed, then channel deletion is scheduled after
// the grace delay and the transcript reference is delivered to the requester
// best-effort. An archival failure aborts the close with the ticket left in
// its prior state.
func (m *Manager) ConfirmClose(ctx context.Context, channelID, actorID string) (*CloseResult, error) {
	return m.close(ctx, channelID, actorID)
}

// ForceClose is ConfirmClose without the confirmation round-trip, for
// staff-initiated immediate closure.
func (m *Manager) ForceClose(ctx context.Context, channelID, actorID string) (*CloseResult, error) {
	return m.close(ctx, channelID, actorID)
}

func (m *Manager) close(ctx context.Context, channelID, actorID string) (*CloseResult, error) {
	unlock := m.channelLocks.Lock(channelID)
	defer unlock()

	ticket, err := m.tickets.GetOpenTicketByChannel(ctx, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrNotATicketChannel
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	// One timestamp for the whole close: the artifact key and the row's
	// closed_at always agree.
	now := custom.Now()

	// Archive before committing the transition. If this fails the ticket
	// stays open and nothing below runs.
	transcriptID, err := m.archiver.Archive(ctx, ticket, time.Time(now))
	if err != nil {
		return nil, err
	}

	if err := m.tickets.CloseTicket(ctx, channelID, actorID, now); errors.Is(err, dataaccess.ErrNotFound) {
		return nil, ErrTicketNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	ticket.Status = entities.StatusClosed
	ticket.ClosedBy = &actorID
	ticket.ClosedAt = &now

	m.stats.RecordClosed(ctx, ticket.GuildID)
	m.CancelClose(channelID)
	m.scheduleDeletion(channelID)
	m.notify(ctx, ticket, transcriptID)

	m.l.Info("Ticket closed",
		slog.String(logging.KeyGuildID, ticket.GuildID),
		slog.String(logging.KeyTicketID, ticket.TicketID),
		slog.String(logging.KeyUserID, actorID),
		slog.String("transcript_id", transcriptID),
	)

	return &CloseResult{
		Ticket:       ticket,
		TranscriptID: transcriptID,
		DeleteAfter:  m.deleteDelay,
	}, nil
}

// Transcript stores a snapshot of the ticket's history so far without closing
// it, returning the artifact ID. The snapshot is not recorded on the ticket:
// the close still archives everything sent up to the close itself.
func (m *Manager) Transcript(ctx context.Context, channelID string) (string, error) {
	unlock := m.channelLocks.Lock(channelID)
	defer unlock()

	ticket, err := m.tickets.GetOpenTicketByChannel(ctx, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return "", ErrNotATicketChannel
	} else if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	return m.archiver.Snapshot(ctx, ticket)
}

// CaptureMessage appends a live message to the ticket backing the channel.
// Messages in channels that are not tickets are ignored. The channel lock
// keeps a capture from landing between a close's archive and its commit,
// which would leave the message out of the artifact.
func (m *Manager) CaptureMessage(ctx context.Context, channelID string, msg *entities.TranscriptMessage) error {
	unlock := m.channelLocks.Lock(channelID)
	defer unlock()

	ticket, err := m.tickets.GetOpenTicketByChannel(ctx, channelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	msg.TicketID = ticket.TicketID
	msg.GuildID = ticket.GuildID
	if err := m.tickets.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return nil
}

// PurgeExpired removes closed tickets past the retention window along with
// their captured messages. Returns the number of tickets removed.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-retentionWindow)
	n, err := m.tickets.PurgeClosedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if n > 0 {
		m.l.Info("Purged expired tickets", slog.Int64("count", n))
	}
	return n, nil
}

// scheduleDeletion arranges for the channel to be deleted after the grace
// delay. The timer can be cancelled with CancelDeletion until it fires.
func (m *Manager) scheduleDeletion(channelID string) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()

	if _, ok := m.deleteTimers[channelID]; ok {
		return
	}

	m.deleteTimers[channelID] = time.AfterFunc(m.deleteDelay, func() {
		m.timersMu.Lock()
		delete(m.deleteTimers, channelID)
		m.timersMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := m.provisioner.Delete(ctx, channelID); err != nil {
			m.l.Error("Error deleting closed ticket channel",
				slog.String(logging.KeyChannelID, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	})
}

// CancelDeletion stops a scheduled channel deletion that has not fired yet.
// Reports whether a deletion was pending.
func (m *Manager) CancelDeletion(channelID string) bool {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()

	timer, ok := m.deleteTimers[channelID]
	if !ok {
		return false
	}
	delete(m.deleteTimers, channelID)
	return timer.Stop()
}

// notify delivers the transcript reference to the requester. Failures are
// logged and swallowed; the close has already committed.
func (m *Manager) notify(ctx context.Context, ticket *entities.Ticket, transcriptID string) {
	if m.notifier == nil {
		return
	}

	if err := m.notifier.DeliverTranscript(ctx, ticket.UserID, ticket, transcriptID); err != nil {
		m.l.Warn("Could not deliver transcript to requester",
			slog.String(logging.KeyTicketID, ticket.TicketID),
			slog.String(logging.KeyUserID, ticket.UserID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
