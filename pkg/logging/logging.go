package logging

import (
	"io"
	"log/slog"
	"os"
)

const (
	// KeyAppName is the key for the application name.
	KeyAppName = `app`

	// KeyError is the key for an error.
	KeyError = `err`

	// KeyDal is the key for the data access layer.
	KeyDal = `dal`

	// KeyGuildID is the key for a guild ID.
	KeyGuildID = `guild_id`

	// KeyTicketID is the key for a ticket ID.
	KeyTicketID = `ticket_id`

	// KeyChannelID is the key for a channel ID.
	KeyChannelID = `channel_id`

	// KeyUserID is the key for a user ID.
	KeyUserID = `user_id`
)

// Name is the name of the application that the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the application name appended to every log line.
	name string

	// output is where the logs are written to.
	output io.Writer

	// level is the minimum level that will be logged.
	level slog.Leveler
}

// NewConfig creates a new logging configuration with the default output and level.
func NewConfig(name Name) *Config {
	return &Config{
		name:   string(name),
		output: os.Stdout,
		level:  slog.LevelDebug,
	}
}

// CommonLogger creates the common logger for the application. The returned
// logger is also installed as the slog default.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(c.output, &slog.HandlerOptions{
		Level: c.level,
	})

	l := slog.New(h).With(slog.String(KeyAppName, c.name))
	slog.SetDefault(l)
	return l, nil
}
