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

const guildDalName = "guild_dal"

// GuildDal is the data access layer for guild configuration.
type GuildDal interface {
	// GetOrCreateGuild gets the configuration for a guild, creating the
	// default configuration if the guild has never been seen.
	GetOrCreateGuild(ctx context.Context, guildID string) (*entities.Guild, error)

	// SaveGuild upserts a guild configuration.
	SaveGuild(ctx context.Context, guild *entities.Guild) error

	// NextTicketSeq atomically increments and returns the guild's ticket
	// sequence counter. Two concurrent calls can never see the same value.
	NextTicketSeq(ctx context.Context, guildID string) (int, error)
}

type guildDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewGuildDal creates a new guild data access layer.
func NewGuildDal(logger *slog.Logger) GuildDal {
	l := logger.With(slog.String(logging.KeyDal, guildDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &guildDal{
		l:      l,
		client: MongoDB,
	}
}

func (g *guildDal) collection() *mongo.Collection {
	return g.client.Database(mongoDatabase).Collection(collectionGuilds)
}

func (g *guildDal) GetOrCreateGuild(ctx context.Context, guildID string) (*entities.Guild, error) {
	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "get_or_create_guild", mongoDatabase, collectionGuilds).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "get_or_create_guild", mongoDatabase, collectionGuilds))
	defer t.ObserveDuration()

	defaults := entities.NewGuild(guildID)

	// Insert the default configuration if the guild is unknown, otherwise
	// return the stored one. A single upsert keeps lazy creation atomic.
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	guild := new(entities.Guild)
	err := g.collection().FindOneAndUpdate(ctx,
		bson.M{"id": guildID},
		bson.M{"$setOnInsert": bson.M{
			"id":     defaults.ID,
			"prefix": defaults.Prefix,
		}},
		opts,
	).Decode(guild)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	return guild, nil
}

func (g *guildDal) SaveGuild(ctx context.Context, guild *entities.Guild) error {
	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "save_guild", mongoDatabase, collectionGuilds).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "save_guild", mongoDatabase, collectionGuilds))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := g.collection().UpdateOne(ctx, bson.M{"id": guild.ID}, bson.M{"$set": guild}, opts)
	if err != nil {
		return fmt.Errorf("error updating guild: %w", err)
	}
	return nil
}

func (g *guildDal) NextTicketSeq(ctx context.Context, guildID string) (int, error) {
	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "next_ticket_seq", mongoDatabase, collectionGuilds).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "next_ticket_seq", mongoDatabase, collectionGuilds))
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	// Upsert with ReturnDocument(After) always yields a document; any error
	// here is real and must not hand out a zero sequence.
	guild := new(entities.Guild)
	err := g.collection().FindOneAndUpdate(ctx,
		bson.M{"id": guildID},
		bson.M{"$inc": bson.M{"ticket_counter": 1}},
		opts,
	).Decode(guild)
	if err != nil {
		return 0, fmt.Errorf("error incrementing ticket counter: %w", err)
	}
	return guild.TicketCounter, nil
}
