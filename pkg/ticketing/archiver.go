package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/transcripts"
)

// historyFetchLimit is how many messages are pulled from the channel when the
// store holds no captured history for the ticket.
const historyFetchLimit = 100

// Archiver produces the immutable transcript artifact for a ticket. Archival
// happens before a ticket is marked closed, so a failed archive never loses
// history: the close is aborted instead.
type Archiver struct {
	// l is the logger.
	l *slog.Logger

	// tickets holds the captured message rows.
	tickets dataaccess.TicketDal

	// store persists the artifact.
	store transcripts.Store

	// provisioner backfills history when capture missed the channel.
	provisioner ChannelProvisioner
}

// NewArchiver creates a new transcript archiver.
func NewArchiver(l *slog.Logger, tickets dataaccess.TicketDal, store transcripts.Store, provisioner ChannelProvisioner) *Archiver {
	return &Archiver{
		l:           l,
		tickets:     tickets,
		store:       store,
		provisioner: provisioner,
	}
}

// Archive builds and durably stores the close-time transcript for the ticket,
// keyed by closedAt, and pins the artifact ID on the ticket row. A ticket that
// was already closed with a transcript reference returns the existing ID
// without regenerating anything; an open ticket is always archived fresh so
// the close record covers the full history.
func (a *Archiver) Archive(ctx context.Context, ticket *entities.Ticket, closedAt time.Time) (string, error) {
	if ticket.IsClosed() && ticket.TranscriptID != "" {
		return ticket.TranscriptID, nil
	}

	msgs, err := a.history(ctx, ticket)
	if err != nil {
		return "", err
	}

	transcript := a.build(ticket, msgs, closedAt)
	if err := a.store.Save(transcript); err != nil && !errors.Is(err, transcripts.ErrAlreadyExists) {
		return "", fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}

	if err := a.tickets.SetTranscript(ctx, ticket.ChannelID, transcript.ID); err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}
	ticket.TranscriptID = transcript.ID

	a.l.Info("Archived transcript",
		slog.String(logging.KeyGuildID, ticket.GuildID),
		slog.String(logging.KeyTicketID, ticket.TicketID),
		slog.String("transcript_id", transcript.ID),
		slog.Int("messages", len(msgs)),
	)
	return transcript.ID, nil
}

// Snapshot stores a transcript of the ticket's history so far without
// touching the ticket row. The close path ignores snapshots and archives the
// full history itself.
func (a *Archiver) Snapshot(ctx context.Context, ticket *entities.Ticket) (string, error) {
	msgs, err := a.history(ctx, ticket)
	if err != nil {
		return "", err
	}

	transcript := a.build(ticket, msgs, time.Now().UTC())
	if err := a.store.Save(transcript); err != nil && !errors.Is(err, transcripts.ErrAlreadyExists) {
		return "", fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}

	a.l.Info("Stored transcript snapshot",
		slog.String(logging.KeyGuildID, ticket.GuildID),
		slog.String(logging.KeyTicketID, ticket.TicketID),
		slog.String("transcript_id", transcript.ID),
		slog.Int("messages", len(msgs)),
	)
	return transcript.ID, nil
}

// history returns the ticket's captured messages, backfilling from the
// platform when capture never saw the channel.
func (a *Archiver) history(ctx context.Context, ticket *entities.Ticket) ([]entities.TranscriptMessage, error) {
	msgs, err := a.tickets.ListMessages(ctx, ticket.GuildID, ticket.TicketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}

	// Capture normally records messages as they arrive; an empty history
	// means the channel predates capture, so backfill from the platform.
	if len(msgs) == 0 {
		fetched, err := a.provisioner.FetchHistory(ctx, ticket.ChannelID, historyFetchLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
		}

		for i := range fetched {
			fetched[i].TicketID = ticket.TicketID
			fetched[i].GuildID = ticket.GuildID
			if err := a.tickets.AppendMessage(ctx, &fetched[i]); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
			}
		}
		msgs = fetched
	}
	return msgs, nil
}

func (a *Archiver) build(ticket *entities.Ticket, msgs []entities.TranscriptMessage, at time.Time) *entities.Transcript {
	return &entities.Transcript{
		ID:          fmt.Sprintf("%s-%d", ticket.TicketID, at.UnixMilli()),
		TicketID:    ticket.TicketID,
		ChannelName: ticket.ChannelName(),
		ChannelID:   ticket.ChannelID,
		GuildID:     ticket.GuildID,
		UserID:      ticket.UserID,
		CreatedAt:   ticket.CreatedAt,
		ClosedAt:    custom.Datetime(at),
		Messages:    msgs,
	}
}
