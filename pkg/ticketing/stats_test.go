package ticketing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
)

type aggregatorEnv struct {
	agg      *Aggregator
	tickets  *fakeTicketDal
	statsDal *fakeStatsDal
	cache    *fakeStatsCache
}

func newAggregatorEnv(t *testing.T) *aggregatorEnv {
	t.Helper()

	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	env := &aggregatorEnv{
		tickets:  newFakeTicketDal(),
		statsDal: newFakeStatsDal(),
		cache:    newFakeStatsCache(),
	}
	env.agg = NewAggregator(l, env.tickets, env.statsDal, env.cache)
	return env
}

func (e *aggregatorEnv) seedTicket(t *testing.T, guildID, userID string, status entities.TicketStatus) {
	t.Helper()
	err := e.tickets.CreateTicket(context.Background(), &entities.Ticket{
		TicketID: userID,
		GuildID:  guildID,
		UserID:   userID,
		Status:   status,
	})
	require.NoError(t, err)
}

func TestSnapshotDerivedFromStore(t *testing.T) {
	env := newAggregatorEnv(t)
	ctx := context.Background()

	env.seedTicket(t, "guild-1", "u1", entities.StatusOpen)
	env.seedTicket(t, "guild-1", "u2", entities.StatusClaimed)
	env.seedTicket(t, "guild-1", "u3", entities.StatusClosed)
	env.seedTicket(t, "guild-2", "u4", entities.StatusOpen)

	stats, err := env.agg.Snapshot(ctx, "guild-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Total)
	require.EqualValues(t, 1, stats.Open)
	require.EqualValues(t, 1, stats.Claimed)
	require.EqualValues(t, 1, stats.Closed)
}

func TestSnapshotServedFromCache(t *testing.T) {
	env := newAggregatorEnv(t)
	ctx := context.Background()

	env.seedTicket(t, "guild-1", "u1", entities.StatusOpen)

	first, err := env.agg.Snapshot(ctx, "guild-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Total)

	// A row added behind the cache's back is not visible until the cache
	// entry is invalidated or expires.
	env.seedTicket(t, "guild-1", "u2", entities.StatusOpen)

	cached, err := env.agg.Snapshot(ctx, "guild-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, cached.Total)
}

func TestRecordInvalidatesCache(t *testing.T) {
	env := newAggregatorEnv(t)
	ctx := context.Background()

	env.seedTicket(t, "guild-1", "u1", entities.StatusOpen)

	_, err := env.agg.Snapshot(ctx, "guild-1")
	require.NoError(t, err)

	env.seedTicket(t, "guild-1", "u2", entities.StatusOpen)
	env.agg.RecordCreated(ctx, "guild-1")
	require.Equal(t, 1, env.cache.invalidations)

	fresh, err := env.agg.Snapshot(ctx, "guild-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, fresh.Total)
}

func TestRecordWritesDailyHistory(t *testing.T) {
	env := newAggregatorEnv(t)
	ctx := context.Background()

	env.agg.RecordCreated(ctx, "guild-1")
	env.agg.RecordCreated(ctx, "guild-1")
	env.agg.RecordClaimed(ctx, "guild-1")
	env.agg.RecordClosed(ctx, "guild-1")

	rows, err := env.agg.History(ctx, "guild-1", 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), row.Date)
	require.Equal(t, 2, row.TicketsCreated)
	require.Equal(t, 1, row.TicketsClaimed)
	require.Equal(t, 1, row.TicketsClosed)
}

func TestStatsDeltaValidate(t *testing.T) {
	require.NoError(t, entities.StatsDelta{Created: 1}.Validate())
	require.NoError(t, entities.StatsDelta{}.Validate())
	require.Error(t, entities.StatsDelta{Closed: -1}.Validate())
}
