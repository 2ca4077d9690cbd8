package dataaccess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const statsDalName = "stats_dal"

// StatsDal is the data access layer for per-day ticket history rows. Rows are
// append-only counters; they are not the source of truth for live counts.
type StatsDal interface {
	// IncrementDaily applies a non-negative delta to the guild's row for the
	// given day, creating the row if needed. Negative deltas are a logic
	// error and are rejected.
	IncrementDaily(ctx context.Context, guildID, date string, delta entities.StatsDelta) error

	// ListDaily returns the guild's most recent history rows, oldest first.
	ListDaily(ctx context.Context, guildID string, days int) ([]*entities.DailyStats, error)
}

type statsDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewStatsDal creates a new stats data access layer.
func NewStatsDal(logger *slog.Logger) StatsDal {
	l := logger.With(slog.String(logging.KeyDal, statsDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &statsDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *statsDal) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionStats)
}

func (d *statsDal) IncrementDaily(ctx context.Context, guildID, date string, delta entities.StatsDelta) error {
	if err := delta.Validate(); err != nil {
		return fmt.Errorf("guild %s: %w", guildID, err)
	}

	monitoring.MongoTotalRequests.WithLabelValues(statsDalName, "increment_daily", mongoDatabase, collectionStats).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(statsDalName, "increment_daily", mongoDatabase, collectionStats))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := d.collection().UpdateOne(ctx,
		bson.M{"guild_id": guildID, "date": date},
		bson.M{"$inc": bson.M{
			"tickets_created": delta.Created,
			"tickets_claimed": delta.Claimed,
			"tickets_closed":  delta.Closed,
		}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("error incrementing daily stats: %w", err)
	}
	return nil
}

func (d *statsDal) ListDaily(ctx context.Context, guildID string, days int) ([]*entities.DailyStats, error) {
	monitoring.MongoTotalRequests.WithLabelValues(statsDalName, "list_daily", mongoDatabase, collectionStats).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(statsDalName, "list_daily", mongoDatabase, collectionStats))
	defer t.ObserveDuration()

	opts := options.Find().
		SetSort(bson.M{"date": -1}).
		SetLimit(int64(days))

	cursor, err := d.collection().Find(ctx, bson.M{"guild_id": guildID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing daily stats: %w", err)
	}

	var rows []*entities.DailyStats
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding daily stats: %w", err)
	}

	// Newest first from the query; flip to oldest first for callers.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
