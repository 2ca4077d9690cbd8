package ticketing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
)

// In-memory stand-ins for the Mongo DALs and the platform collaborators so
// lifecycle behaviour can be tested without a database or a gateway.

type fakeGuildDal struct {
	mu     sync.Mutex
	guilds map[string]*entities.Guild
}

func newFakeGuildDal() *fakeGuildDal {
	return &fakeGuildDal{guilds: make(map[string]*entities.Guild)}
}

func (f *fakeGuildDal) GetOrCreateGuild(_ context.Context, guildID string) (*entities.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.guilds[guildID]
	if !ok {
		g = entities.NewGuild(guildID)
		f.guilds[guildID] = g
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGuildDal) SaveGuild(_ context.Context, guild *entities.Guild) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *guild
	f.guilds[guild.ID] = &cp
	return nil
}

func (f *fakeGuildDal) NextTicketSeq(_ context.Context, guildID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.guilds[guildID]
	if !ok {
		g = entities.NewGuild(guildID)
		f.guilds[guildID] = g
	}
	g.TicketCounter++
	return g.TicketCounter, nil
}

type fakeTicketDal struct {
	mu       sync.Mutex
	tickets  []*entities.Ticket
	messages []entities.TranscriptMessage

	createErr error
}

func newFakeTicketDal() *fakeTicketDal {
	return &fakeTicketDal{}
}

func (f *fakeTicketDal) CreateTicket(_ context.Context, ticket *entities.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	cp := *ticket
	f.tickets = append(f.tickets, &cp)
	return nil
}

func (f *fakeTicketDal) GetOpenTicketByChannel(_ context.Context, channelID string) (*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.ChannelID == channelID && !t.IsClosed() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (f *fakeTicketDal) GetOpenTicketByUser(_ context.Context, guildID, userID string) (*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.GuildID == guildID && t.UserID == userID && !t.IsClosed() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (f *fakeTicketDal) ClaimTicket(_ context.Context, channelID, claimantID string, at custom.Datetime) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.ChannelID == channelID && t.Status == entities.StatusOpen && t.ClaimedBy == nil {
			t.Status = entities.StatusClaimed
			t.ClaimedBy = &claimantID
			t.ClaimedAt = &at
			return nil
		}
	}
	return dataaccess.ErrNotFound
}

func (f *fakeTicketDal) CloseTicket(_ context.Context, channelID, closerID string, at custom.Datetime) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.ChannelID == channelID && !t.IsClosed() {
			t.Status = entities.StatusClosed
			t.ClosedBy = &closerID
			t.ClosedAt = &at
			return nil
		}
	}
	return dataaccess.ErrNotFound
}

func (f *fakeTicketDal) SetTranscript(_ context.Context, channelID, transcriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.ChannelID == channelID && !t.IsClosed() {
			t.TranscriptID = transcriptID
			return nil
		}
	}
	return dataaccess.ErrNotFound
}

func (f *fakeTicketDal) ListTickets(_ context.Context, guildID string, status entities.TicketStatus) ([]*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entities.Ticket
	for _, t := range f.tickets {
		if t.GuildID != guildID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTicketDal) AppendMessage(_ context.Context, msg *entities.TranscriptMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeTicketDal) ListMessages(_ context.Context, guildID, ticketID string) ([]entities.TranscriptMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entities.TranscriptMessage
	for _, m := range f.messages {
		if m.GuildID == guildID && m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeTicketDal) CountByStatus(_ context.Context, guildID string) (*entities.GuildStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := new(entities.GuildStats)
	for _, t := range f.tickets {
		if t.GuildID != guildID {
			continue
		}
		stats.Total++
		switch t.Status {
		case entities.StatusOpen:
			stats.Open++
		case entities.StatusClaimed:
			stats.Claimed++
		case entities.StatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

func (f *fakeTicketDal) PurgeClosedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []*entities.Ticket
	var purged int64
	for _, t := range f.tickets {
		if t.IsClosed() && t.ClosedAt != nil && t.ClosedAt.Time().Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, t)
	}
	f.tickets = kept
	return purged, nil
}

type fakeStatsDal struct {
	mu   sync.Mutex
	rows map[string]*entities.DailyStats
}

func newFakeStatsDal() *fakeStatsDal {
	return &fakeStatsDal{rows: make(map[string]*entities.DailyStats)}
}

func (f *fakeStatsDal) IncrementDaily(_ context.Context, guildID, date string, delta entities.StatsDelta) error {
	if err := delta.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := guildID + "|" + date
	row, ok := f.rows[key]
	if !ok {
		row = &entities.DailyStats{GuildID: guildID, Date: date}
		f.rows[key] = row
	}
	row.TicketsCreated += delta.Created
	row.TicketsClaimed += delta.Claimed
	row.TicketsClosed += delta.Closed
	return nil
}

func (f *fakeStatsDal) ListDaily(_ context.Context, guildID string, _ int) ([]*entities.DailyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entities.DailyStats
	for _, row := range f.rows {
		if row.GuildID == guildID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeStatsCache struct {
	mu            sync.Mutex
	entries       map[string]*entities.GuildStats
	invalidations int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: make(map[string]*entities.GuildStats)}
}

func (f *fakeStatsCache) Get(_ context.Context, guildID string) (*entities.GuildStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats, ok := f.entries[guildID]
	if !ok {
		return nil, dataaccess.ErrCacheMiss
	}
	cp := *stats
	return &cp, nil
}

func (f *fakeStatsCache) Set(_ context.Context, guildID string, stats *entities.GuildStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *stats
	f.entries[guildID] = &cp
	return nil
}

func (f *fakeStatsCache) Invalidate(_ context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.entries, guildID)
	f.invalidations++
	return nil
}

type fakeProvisioner struct {
	mu          sync.Mutex
	nextChannel int
	created     []string
	deleted     []string
	history     []entities.TranscriptMessage
	fetchCalls  int

	createErr error
	fetchErr  error
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{}
}

func (f *fakeProvisioner) EnsureCategory(_ context.Context, guildID, categoryID string) (string, error) {
	if categoryID != "" {
		return categoryID, nil
	}
	return "category-" + guildID, nil
}

func (f *fakeProvisioner) Create(_ context.Context, _, _, _ string, _ PermissionSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextChannel++
	id := fmt.Sprintf("chan-%d", f.nextChannel)
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeProvisioner) Delete(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakeProvisioner) FetchHistory(_ context.Context, _ string, _ int) ([]entities.TranscriptMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]entities.TranscriptMessage(nil), f.history...), nil
}

func (f *fakeProvisioner) deletedChannels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (f *fakeNotifier) DeliverTranscript(_ context.Context, userID string, _ *entities.Ticket, transcriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, userID+":"+transcriptID)
	return nil
}
