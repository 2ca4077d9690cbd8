package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

// TicketDal is the data access layer for tickets and their archived messages.
// All writes are atomic per ticket document; claim and close fields are only
// ever set together.
type TicketDal interface {
	// CreateTicket inserts a new ticket.
	CreateTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetOpenTicketByChannel returns the non-closed ticket backed by the
	// channel, or ErrNotFound.
	GetOpenTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error)

	// GetOpenTicketByUser returns the user's non-closed ticket in the guild,
	// or ErrNotFound.
	GetOpenTicketByUser(ctx context.Context, guildID, userID string) (*entities.Ticket, error)

	// ClaimTicket sets the claimant, claim timestamp and claimed status in one
	// write. Returns ErrNotFound if the channel has no unclaimed open ticket.
	ClaimTicket(ctx context.Context, channelID, claimantID string, at custom.Datetime) error

	// CloseTicket sets the closer, close timestamp and closed status in one
	// write. Returns ErrNotFound if the channel has no non-closed ticket.
	CloseTicket(ctx context.Context, channelID, closerID string, at custom.Datetime) error

	// SetTranscript records the transcript artifact reference on the ticket.
	SetTranscript(ctx context.Context, channelID, transcriptID string) error

	// ListTickets lists a guild's tickets, optionally filtered by status.
	ListTickets(ctx context.Context, guildID string, status entities.TicketStatus) ([]*entities.Ticket, error)

	// AppendMessage appends one archived message to the ticket's history.
	AppendMessage(ctx context.Context, msg *entities.TranscriptMessage) error

	// ListMessages returns the ticket's archived messages in timestamp order.
	ListMessages(ctx context.Context, guildID, ticketID string) ([]entities.TranscriptMessage, error)

	// CountByStatus derives the guild's ticket counts from the stored rows.
	CountByStatus(ctx context.Context, guildID string) (*entities.GuildStats, error)

	// PurgeClosedBefore removes closed tickets (and their messages) whose
	// close timestamp is before the cutoff. Returns the number removed.
	PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(logger *slog.Logger) TicketDal {
	l := logger.With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *ticketDal) tickets() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionTickets)
}

func (d *ticketDal) messages() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionMessages)
}

func (d *ticketDal) observe(query, collection string) *prometheus.Timer {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, query, mongoDatabase, collection).Inc()
	return prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, query, mongoDatabase, collection))
}

func (d *ticketDal) CreateTicket(ctx context.Context, ticket *entities.Ticket) error {
	t := d.observe("create_ticket", collectionTickets)
	defer t.ObserveDuration()

	if _, err := d.tickets().InsertOne(ctx, ticket); err != nil {
		return fmt.Errorf("error inserting ticket: %w", err)
	}
	return nil
}

// notClosed matches tickets in the open or claimed state.
var notClosed = bson.M{"$ne": string(entities.StatusClosed)}

func (d *ticketDal) GetOpenTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error) {
	t := d.observe("get_open_ticket_by_channel", collectionTickets)
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.tickets().FindOne(ctx, bson.M{
		"channel_id": channelID,
		"status":     notClosed,
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) GetOpenTicketByUser(ctx context.Context, guildID, userID string) (*entities.Ticket, error) {
	t := d.observe("get_open_ticket_by_user", collectionTickets)
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.tickets().FindOne(ctx, bson.M{
		"guild_id": guildID,
		"user_id":  userID,
		"status":   notClosed,
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) ClaimTicket(ctx context.Context, channelID, claimantID string, at custom.Datetime) error {
	t := d.observe("claim_ticket", collectionTickets)
	defer t.ObserveDuration()

	res, err := d.tickets().UpdateOne(ctx,
		bson.M{
			"channel_id": channelID,
			"status":     string(entities.StatusOpen),
			"claimed_by": nil,
		},
		bson.M{"$set": bson.M{
			"status":     string(entities.StatusClaimed),
			"claimed_by": claimantID,
			"claimed_at": at,
		}},
	)
	if err != nil {
		return fmt.Errorf("error claiming ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *ticketDal) CloseTicket(ctx context.Context, channelID, closerID string, at custom.Datetime) error {
	t := d.observe("close_ticket", collectionTickets)
	defer t.ObserveDuration()

	res, err := d.tickets().UpdateOne(ctx,
		bson.M{
			"channel_id": channelID,
			"status":     notClosed,
		},
		bson.M{"$set": bson.M{
			"status":    string(entities.StatusClosed),
			"closed_by": closerID,
			"closed_at": at,
		}},
	)
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *ticketDal) SetTranscript(ctx context.Context, channelID, transcriptID string) error {
	t := d.observe("set_transcript", collectionTickets)
	defer t.ObserveDuration()

	res, err := d.tickets().UpdateOne(ctx,
		bson.M{"channel_id": channelID, "status": notClosed},
		bson.M{"$set": bson.M{"transcript_id": transcriptID}},
	)
	if err != nil {
		return fmt.Errorf("error setting transcript: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *ticketDal) ListTickets(ctx context.Context, guildID string, status entities.TicketStatus) ([]*entities.Ticket, error) {
	t := d.observe("list_tickets", collectionTickets)
	defer t.ObserveDuration()

	filter := bson.M{"guild_id": guildID}
	if status != "" {
		filter["status"] = string(status)
	}

	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := d.tickets().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}

	var tickets []*entities.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}

func (d *ticketDal) AppendMessage(ctx context.Context, msg *entities.TranscriptMessage) error {
	t := d.observe("append_message", collectionMessages)
	defer t.ObserveDuration()

	if _, err := d.messages().InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("error appending message: %w", err)
	}
	return nil
}

func (d *ticketDal) ListMessages(ctx context.Context, guildID, ticketID string) ([]entities.TranscriptMessage, error) {
	t := d.observe("list_messages", collectionMessages)
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.M{"timestamp": 1})
	cursor, err := d.messages().Find(ctx, bson.M{
		"guild_id":  guildID,
		"ticket_id": ticketID,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}

	var msgs []entities.TranscriptMessage
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("error decoding messages: %w", err)
	}
	return msgs, nil
}

func (d *ticketDal) CountByStatus(ctx context.Context, guildID string) (*entities.GuildStats, error) {
	t := d.observe("count_by_status", collectionTickets)
	defer t.ObserveDuration()

	cursor, err := d.tickets().Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"guild_id": guildID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("error counting tickets: %w", err)
	}

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding counts: %w", err)
	}

	stats := new(entities.GuildStats)
	for _, row := range rows {
		stats.Total += row.Count
		switch entities.TicketStatus(row.Status) {
		case entities.StatusOpen:
			stats.Open = row.Count
		case entities.StatusClaimed:
			stats.Claimed = row.Count
		case entities.StatusClosed:
			stats.Closed = row.Count
		}
	}
	return stats, nil
}

func (d *ticketDal) PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	t := d.observe("purge_closed_before", collectionTickets)
	defer t.ObserveDuration()

	filter := bson.M{
		"status":    string(entities.StatusClosed),
		"closed_at": bson.M{"$lt": custom.Datetime(cutoff.UTC())},
	}

	cursor, err := d.tickets().Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error finding expired tickets: %w", err)
	}

	var expired []*entities.Ticket
	if err := cursor.All(ctx, &expired); err != nil {
		return 0, fmt.Errorf("error decoding expired tickets: %w", err)
	}

	for _, ticket := range expired {
		if _, err := d.messages().DeleteMany(ctx, bson.M{
			"guild_id":  ticket.GuildID,
			"ticket_id": ticket.TicketID,
		}); err != nil {
			return 0, fmt.Errorf("error purging messages for ticket %s: %w", ticket.TicketID, err)
		}
	}

	res, err := d.tickets().DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error purging tickets: %w", err)
	}
	return res.DeletedCount, nil
}
