package ticketing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/transcripts"
)

type archiverEnv struct {
	archiver    *Archiver
	tickets     *fakeTicketDal
	provisioner *fakeProvisioner
	store       transcripts.Store
}

func newArchiverEnv(t *testing.T) *archiverEnv {
	t.Helper()

	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	store, err := transcripts.NewFileStore(t.TempDir())
	require.NoError(t, err)

	env := &archiverEnv{
		tickets:     newFakeTicketDal(),
		provisioner: newFakeProvisioner(),
		store:       store,
	}
	env.archiver = NewArchiver(l, env.tickets, store, env.provisioner)
	return env
}

func (e *archiverEnv) seedTicket(t *testing.T) *entities.Ticket {
	t.Helper()

	ticket := &entities.Ticket{
		TicketID:  "000007",
		GuildID:   "guild-1",
		ChannelID: "chan-7",
		UserID:    "user-a",
		Username:  "alice",
		Status:    entities.StatusOpen,
		CreatedAt: custom.Now(),
	}
	require.NoError(t, e.tickets.CreateTicket(context.Background(), ticket))
	return ticket
}

func TestArchiveFromCapturedMessages(t *testing.T) {
	env := newArchiverEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(t)

	for _, content := range []string{"first", "second", "third"} {
		err := env.tickets.AppendMessage(ctx, &entities.TranscriptMessage{
			TicketID: ticket.TicketID,
			GuildID:  ticket.GuildID,
			Author:   entities.MessageAuthor{ID: "user-a", Username: "alice"},
			Content:  content,
		})
		require.NoError(t, err)
	}

	closedAt := time.Now().UTC()
	id, err := env.archiver.Archive(ctx, ticket, closedAt)
	require.NoError(t, err)
	require.Equal(t, id, ticket.TranscriptID)

	// The artifact key carries the close timestamp it was given.
	require.Equal(t, fmt.Sprintf("%s-%d", ticket.TicketID, closedAt.UnixMilli()), id)

	got, err := env.store.Get(id)
	require.NoError(t, err)
	require.Equal(t, "000007", got.TicketID)
	require.Equal(t, "ticket-000007", got.ChannelName)
	require.Equal(t, closedAt.Unix(), time.Time(got.ClosedAt).Unix())
	require.Len(t, got.Messages, 3)
	require.Equal(t, "first", got.Messages[0].Content)

	// Captured history means no platform fetch.
	require.Zero(t, env.provisioner.fetchCalls)
}

func TestArchiveBackfillsEmptyHistory(t *testing.T) {
	env := newArchiverEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(t)

	env.provisioner.history = []entities.TranscriptMessage{
		{MessageID: "m1", Author: entities.MessageAuthor{ID: "user-a"}, Content: "hello"},
		{MessageID: "m2", Author: entities.MessageAuthor{ID: "staff-1"}, Content: "hi"},
	}

	id, err := env.archiver.Archive(ctx, ticket, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 1, env.provisioner.fetchCalls)

	got, err := env.store.Get(id)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)

	// The backfilled rows are persisted and stamped with the ticket.
	persisted, err := env.tickets.ListMessages(ctx, ticket.GuildID, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	require.Equal(t, ticket.TicketID, persisted[0].TicketID)
	require.Equal(t, ticket.GuildID, persisted[0].GuildID)
}

func TestArchiveReusesReferenceOnceClosed(t *testing.T) {
	env := newArchiverEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(t)

	first, err := env.archiver.Archive(ctx, ticket, time.Now().UTC())
	require.NoError(t, err)

	ticket.Status = entities.StatusClosed

	again, err := env.archiver.Archive(ctx, ticket, time.Now().Add(time.Minute).UTC())
	require.NoError(t, err)
	require.Equal(t, first, again)

	// The already-referenced path does not touch the platform again.
	require.Equal(t, 1, env.provisioner.fetchCalls)
}

func TestSnapshotDoesNotPinReference(t *testing.T) {
	env := newArchiverEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(t)

	err := env.tickets.AppendMessage(ctx, &entities.TranscriptMessage{
		TicketID: ticket.TicketID,
		GuildID:  ticket.GuildID,
		Author:   entities.MessageAuthor{ID: "user-a", Username: "alice"},
		Content:  "hello",
	})
	require.NoError(t, err)

	id, err := env.archiver.Snapshot(ctx, ticket)
	require.NoError(t, err)

	// The artifact exists, but nothing is recorded on the ticket: the close
	// will archive the full history itself.
	got, err := env.store.Get(id)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.Empty(t, ticket.TranscriptID)

	current, err := env.tickets.GetOpenTicketByChannel(ctx, ticket.ChannelID)
	require.NoError(t, err)
	require.Empty(t, current.TranscriptID)
}
