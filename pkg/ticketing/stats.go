package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
)

// Aggregator serves guild ticket counts. Live counts are derived from the
// ticket store on every snapshot, so they can never drift from the rows; the
// Redis cache only bounds query load. Per-day history rows are incremented as
// transitions happen and are append-only.
type Aggregator struct {
	// l is the logger.
	l *slog.Logger

	// tickets is the ticket store the counts are derived from.
	tickets dataaccess.TicketDal

	// history holds the append-only per-day rows.
	history dataaccess.StatsDal

	// cache holds recent snapshots.
	cache dataaccess.StatsCache
}

// NewAggregator creates a new stats aggregator.
func NewAggregator(l *slog.Logger, tickets dataaccess.TicketDal, history dataaccess.StatsDal, cache dataaccess.StatsCache) *Aggregator {
	return &Aggregator{
		l:       l,
		tickets: tickets,
		history: history,
		cache:   cache,
	}
}

// Snapshot returns the guild's current ticket counts.
func (a *Aggregator) Snapshot(ctx context.Context, guildID string) (*entities.GuildStats, error) {
	if stats, err := a.cache.Get(ctx, guildID); err == nil {
		return stats, nil
	} else if !errors.Is(err, dataaccess.ErrCacheMiss) {
		// A broken cache must not take the stats command down.
		a.l.Warn("Stats cache read failed",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	stats, err := a.tickets.CountByStatus(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if err := a.cache.Set(ctx, guildID, stats); err != nil {
		a.l.Warn("Stats cache write failed",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return stats, nil
}

// History returns the guild's per-day rows for the last `days` days, oldest
// first.
func (a *Aggregator) History(ctx context.Context, guildID string, days int) ([]*entities.DailyStats, error) {
	rows, err := a.history.ListDaily(ctx, guildID, days)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return rows, nil
}

// record applies a transition to the daily history and drops the cached
// snapshot so the next read sees fresh counts. History failures are logged
// rather than failing the transition that already committed.
func (a *Aggregator) record(ctx context.Context, guildID string, delta entities.StatsDelta) {
	date := time.Now().UTC().Format("2006-01-02")
	if err := a.history.IncrementDaily(ctx, guildID, date, delta); err != nil {
		a.l.Error("Error recording daily stats",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	if err := a.cache.Invalidate(ctx, guildID); err != nil {
		a.l.Warn("Stats cache invalidation failed",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// RecordCreated records a ticket creation.
func (a *Aggregator) RecordCreated(ctx context.Context, guildID string) {
	a.record(ctx, guildID, entities.StatsDelta{Created: 1})
}

// RecordClaimed records a ticket claim.
func (a *Aggregator) RecordClaimed(ctx context.Context, guildID string) {
	a.record(ctx, guildID, entities.StatsDelta{Claimed: 1})
}

// RecordClosed records a ticket close.
func (a *Aggregator) RecordClosed(ctx context.Context, guildID string) {
	a.record(ctx, guildID, entities.StatsDelta{Closed: 1})
}
