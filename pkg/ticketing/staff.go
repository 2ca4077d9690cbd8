package ticketing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/logging"
)

// Directory resolves staff privilege from guild configuration. An actor is
// staff if they are in the guild's staff user set or hold any of its staff
// roles.
type Directory struct {
	// l is the logger.
	l *slog.Logger

	// guilds is the guild configuration store.
	guilds dataaccess.GuildDal
}

// NewDirectory creates a new staff directory.
func NewDirectory(l *slog.Logger, guilds dataaccess.GuildDal) *Directory {
	return &Directory{
		l:      l,
		guilds: guilds,
	}
}

// IsStaff reports whether the actor holds staff privilege in the guild.
// actorRoleIDs are the roles the actor currently holds, as reported by the
// chat platform.
func (d *Directory) IsStaff(ctx context.Context, guildID, actorID string, actorRoleIDs []string) (bool, error) {
	guild, err := d.guilds.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if guild.HasStaffUser(actorID) {
		return true, nil
	}

	for _, roleID := range actorRoleIDs {
		if guild.HasStaffRole(roleID) {
			return true, nil
		}
	}
	return false, nil
}

// AddStaffRole records a staff role for the guild. Returns ErrAlreadyPresent
// if the role is already recorded.
func (d *Directory) AddStaffRole(ctx context.Context, guildID, roleID string) error {
	guild, err := d.guilds.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if guild.HasStaffRole(roleID) {
		return fmt.Errorf("%w: role %s", ErrAlreadyPresent, roleID)
	}

	guild.StaffRoleIDs = append(guild.StaffRoleIDs, roleID)
	if err := d.guilds.SaveGuild(ctx, guild); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	d.l.Info("Added staff role",
		slog.String(logging.KeyGuildID, guildID),
		slog.String("role_id", roleID),
	)
	return nil
}

// AddStaffUser records a staff user for the guild. Returns ErrAlreadyPresent
// if the user is already recorded.
func (d *Directory) AddStaffUser(ctx context.Context, guildID, userID string) error {
	guild, err := d.guilds.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	if guild.HasStaffUser(userID) {
		return fmt.Errorf("%w: user %s", ErrAlreadyPresent, userID)
	}

	guild.StaffUserIDs = append(guild.StaffUserIDs, userID)
	if err := d.guilds.SaveGuild(ctx, guild); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	d.l.Info("Added staff user",
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyUserID, userID),
	)
	return nil
}
