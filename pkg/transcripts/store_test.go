package transcripts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/entities"
)

func testTranscript(id string) *entities.Transcript {
	return &entities.Transcript{
		ID:          id,
		TicketID:    "000001",
		ChannelName: "ticket-000001",
		ChannelID:   "chan-1",
		GuildID:     "guild-1",
		UserID:      "user-1",
		CreatedAt:   custom.Datetime(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		ClosedAt:    custom.Datetime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		Messages: []entities.TranscriptMessage{
			{
				MessageID: "m1",
				Author:    entities.MessageAuthor{ID: "user-1", Username: "alice"},
				Content:   "hello",
				Timestamp: custom.Datetime(time.Date(2024, 3, 1, 10, 1, 0, 0, time.UTC)),
			},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	in := testTranscript("000001-1709294400000")
	require.NoError(t, store.Save(in))

	out, err := store.Get(in.ID)
	require.NoError(t, err)
	require.Equal(t, in.TicketID, out.TicketID)
	require.Equal(t, in.ChannelName, out.ChannelName)
	require.Len(t, out.Messages, 1)
	require.Equal(t, "hello", out.Messages[0].Content)
}

func TestFileStoreImmutable(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	in := testTranscript("000001-1709294400000")
	require.NoError(t, store.Save(in))
	require.ErrorIs(t, store.Save(in), ErrAlreadyExists)
}

func TestFileStoreGetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("000009-1709294400000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		id   string
	}{
		{name: "Traversal", id: "../../etc/passwd"},
		{name: "Empty", id: ""},
		{name: "NoTimestamp", id: "000001"},
		{name: "Alpha", id: "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Get(tt.id)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}
