package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/ticketing"
)

const (
	// msgErrProcessing is the fallback message when a handler fails.
	msgErrProcessing = "Something went wrong while processing that. Please try again."

	// handlerTimeout bounds the work done for a single interaction.
	handlerTimeout = 10 * time.Second
)

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func respondError(a IApp, i *discordgo.InteractionCreate) error {
	return respondEphemeral(a, i, msgErrProcessing)
}

// respondTicketError translates lifecycle errors into user-facing replies.
// Anything unrecognised gets the generic failure message.
func respondTicketError(a IApp, i *discordgo.InteractionCreate, err error) error {
	msg := msgErrProcessing
	switch {
	case errors.Is(err, ticketing.ErrAlreadyOpen):
		msg = "You already have an open ticket in this server."
	case errors.Is(err, ticketing.ErrNotATicketChannel):
		msg = "This channel is not a ticket channel."
	case errors.Is(err, ticketing.ErrTicketNotFound):
		msg = "That ticket no longer exists."
	case errors.Is(err, ticketing.ErrAlreadyClaimed):
		msg = "This ticket has already been claimed."
	case errors.Is(err, ticketing.ErrNotStaff):
		msg = "You need to be staff to do that."
	case errors.Is(err, ticketing.ErrAlreadyPresent):
		msg = "That staff entry already exists."
	case errors.Is(err, ticketing.ErrArchiveFailed):
		msg = "The transcript could not be saved, so the ticket was left open. Please try again."
	}
	return respondEphemeral(a, i, msg)
}

func respondEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondMessage(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

// interactionUser returns the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func memberRoles(i *discordgo.InteractionCreate) []string {
	if i.Member != nil {
		return i.Member.Roles
	}
	return nil
}

// subcommandOptions returns the arguments of the invoked subcommand.
func subcommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return nil
	}
	return opts[0].Options
}

// requireStaff returns ErrNotStaff unless the invoking member is in the
// guild's staff sets.
func requireStaff(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	user := interactionUser(i)
	ok, err := a.Staff().IsStaff(ctx, i.GuildID, user.ID, memberRoles(i))
	if err != nil {
		return err
	}
	if !ok {
		return ticketing.ErrNotStaff
	}
	return nil
}

// canManageStaff allows guild administrators through even before any staff
// sets exist, so the first staff role can be added at all.
func canManageStaff(a IApp, i *discordgo.InteractionCreate) error {
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	return requireStaff(a, i)
}

// transcriptURL is the public link for a transcript artifact. Without a
// configured website the raw artifact ID is returned.
func transcriptURL(transcriptID string) string {
	if WebsiteUrl == "" {
		return transcriptID
	}
	return strings.TrimSuffix(WebsiteUrl, "/") + "/transcript/" + transcriptID
}
