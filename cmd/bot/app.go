package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/request"
	"github.com/wardenbot/warden/pkg/ticketing"
	"github.com/wardenbot/warden/pkg/transcripts"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"

	// PathTranscript is the path for serving transcript artifacts.
	PathTranscript = "/transcript/{id}"

	// PathGuildStats is the path for serving guild ticket stats.
	PathGuildStats = "/api/guilds/{id}/stats"

	// purgeInterval is how often the retention sweep runs.
	purgeInterval = 12 * time.Hour
)

// IApp is the interface for the application.
type IApp interface {
	// Log returns the logger.
	Log() *slog.Logger

	// Session returns the discord session.
	Session() *discordgo.Session

	// Manager returns the ticket lifecycle manager.
	Manager() *ticketing.Manager

	// Staff returns the staff directory.
	Staff() *ticketing.Directory

	// Stats returns the stats aggregator.
	Stats() *ticketing.Aggregator

	// GuildDal returns the guild configuration store.
	GuildDal() dataaccess.GuildDal

	// TicketDal returns the ticket store.
	TicketDal() dataaccess.TicketDal
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// guilds is the guild configuration store.
	guilds dataaccess.GuildDal

	// tickets is the ticket store.
	tickets dataaccess.TicketDal

	// stats is the stats aggregator.
	stats *ticketing.Aggregator

	// staff is the staff directory.
	staff *ticketing.Directory

	// store is the transcript store.
	store transcripts.Store

	// manager is the ticket lifecycle manager. Built in Run once the discord
	// session exists.
	manager *ticketing.Manager
}

// NewApp creates a new instance of App.
func NewApp(
	l *slog.Logger,
	r *mux.Router,
	guilds dataaccess.GuildDal,
	tickets dataaccess.TicketDal,
	stats *ticketing.Aggregator,
	staff *ticketing.Directory,
	store transcripts.Store,
) *App {
	return &App{
		Logger:  l,
		r:       r,
		guilds:  guilds,
		tickets: tickets,
		stats:   stats,
		staff:   staff,
		store:   store,
	}
}

func newTranscriptStore() (transcripts.Store, error) {
	return transcripts.NewFileStore(TranscriptDir)
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	// The provisioner and notifier need the session, so the manager is built
	// here rather than in the injector.
	provisioner := newDiscordProvisioner(a)
	archiver := ticketing.NewArchiver(a.Logger, a.tickets, a.store, provisioner)
	a.manager = ticketing.NewManager(a.Logger, a.guilds, a.tickets, a.stats, archiver, provisioner, newDiscordNotifier(a))

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	go a.retentionLoop()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	a.s = dg
	return nil
}

func (a *App) runServer() {
	go func() {
		slog.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// PathTranscript serves stored transcript artifacts as JSON.
	a.r.HandleFunc(PathTranscript, middlewareHttp(a.transcriptController(), a)).Methods(http.MethodGet)

	// PathGuildStats serves the guild's live counts and per-day history.
	a.r.HandleFunc(PathGuildStats, middlewareHttp(a.guildStatsController(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + MonitoringPort,
		Handler: a.r,
	}
}

// retentionLoop periodically purges closed tickets that are past the
// retention window.
func (a *App) retentionLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if _, err := a.manager.PurgeExpired(ctx); err != nil {
			a.Error("Error purging expired tickets", slog.String(logging.KeyError, err.Error()))
		}
		cancel()
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "", false)
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Live messages in ticket channels are captured for the transcript.
	a.s.AddHandler(messageCreateHandler(a))

	// Every raw gateway event is counted.
	a.s.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		if e.Type != "" {
			TotalDiscordEvents.WithLabelValues(e.Type).Inc()
		} else {
			TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	})

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandController{
			setupCmd.Name:  setupCmdController,
			ticketCmd.Name: ticketCmdController,
		},
		// Button Controllers
		map[string]commandProcessor{
			OpenTicketButtonID:   createTicket,
			ClaimTicketButtonID:  claimTicketHandler,
			CloseTicketButtonID:  closeTicketHandler,
			ConfirmCloseButtonID: confirmCloseHandler,
			CancelCloseButtonID:  cancelCloseHandler,
			TranscriptButtonID:   transcriptButtonHandler,
		}))
	return nil
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		// Register the setup command.
		if _, err := a.Session().ApplicationCommandCreate(ApplicationId, g.ID, setupCmd); err != nil {
			return fmt.Errorf("error creating setup command for guild %s: %w", g.ID, err)
		}

		// Register the ticket command.
		if _, err := a.Session().ApplicationCommandCreate(ApplicationId, g.ID, ticketCmd); err != nil {
			return fmt.Errorf("error creating ticket command for guild %s: %w", g.ID, err)
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Delete slash commands for each guild.
	for _, guild := range guilds {
		cmds, err := a.s.ApplicationCommands(ApplicationId, guild.ID)
		if err != nil {
			return fmt.Errorf("error listing commands for guild %s: %w", guild.ID, err)
		}

		for _, cmd := range cmds {
			if cmd.Name != setupCmd.Name && cmd.Name != ticketCmd.Name {
				continue
			}
			if err := a.s.ApplicationCommandDelete(ApplicationId, guild.ID, cmd.ID); err != nil {
				return fmt.Errorf("error deleting command %s for guild %s: %w", cmd.Name, guild.ID, err)
			}
		}
	}
	return nil
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Manager() *ticketing.Manager {
	return a.manager
}

func (a *App) Staff() *ticketing.Directory {
	return a.staff
}

func (a *App) Stats() *ticketing.Aggregator {
	return a.stats
}

func (a *App) GuildDal() dataaccess.GuildDal {
	return a.guilds
}

func (a *App) TicketDal() dataaccess.TicketDal {
	return a.tickets
}
