package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/transcripts"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	store, err := transcripts.NewFileStore(t.TempDir())
	require.NoError(t, err)

	a := NewApp(l, mux.NewRouter(), nil, nil, nil, nil, store)

	// Only the transcript route is exercised here; the full route table needs
	// a live session and databases.
	a.r.HandleFunc(PathTranscript, middlewareHttp(a.transcriptController(), a)).Methods(http.MethodGet)

	return a
}

func TestTranscriptController(t *testing.T) {
	a := newTestApp(t)

	now := custom.Datetime(time.Now().UTC())
	stored := &entities.Transcript{
		ID:          "000001-1700000000000",
		TicketID:    "000001",
		ChannelName: "ticket-000001",
		ChannelID:   "chan-1",
		GuildID:     "guild-1",
		UserID:      "user-a",
		CreatedAt:   now,
		ClosedAt:    now,
		Messages: []entities.TranscriptMessage{
			{
				MessageID: "m1",
				Author:    entities.MessageAuthor{ID: "user-a", Username: "alice"},
				Content:   "hello",
				Timestamp: now,
			},
		},
	}
	require.NoError(t, a.store.Save(stored))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/transcript/000001-1700000000000", nil)
	a.r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	got := new(entities.Transcript)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), got))
	require.Equal(t, stored.ID, got.ID)
	require.Equal(t, stored.TicketID, got.TicketID)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "hello", got.Messages[0].Content)
}

func TestTranscriptControllerNotFound(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name string
		path string
	}{
		{
			name: "missing artifact",
			path: "/transcript/000001-1700000000000",
		},
		{
			name: "malformed id",
			path: "/transcript/not-a-transcript",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			a.r.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}
