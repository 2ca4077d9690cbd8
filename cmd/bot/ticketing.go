package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/ticketing"
)

const (
	// OpenTicketButtonID is the ID for the open ticket button.
	OpenTicketButtonID = "open_ticket_button"

	// ClaimTicketButtonID is the ID for the claim ticket button.
	ClaimTicketButtonID = "claim_ticket_button"

	// CloseTicketButtonID is the ID for the close ticket button.
	CloseTicketButtonID = "close_ticket_button"

	// ConfirmCloseButtonID is the ID for the button confirming a close.
	ConfirmCloseButtonID = "confirm_close_button"

	// CancelCloseButtonID is the ID for the button cancelling a close.
	CancelCloseButtonID = "cancel_close_button"

	// TranscriptButtonID is the ID for the transcript button.
	TranscriptButtonID = "transcript_button"
)

const (
	// ClaimEmoji is the emoji that will be used for the claim button. (Ticket)
	ClaimEmoji = "\U0001F3AB"

	// CloseEmoji is the emoji that will be used for the close button. (Padlock)
	CloseEmoji = "\U0001F510"

	// TranscriptEmoji is the emoji that will be used for the transcript
	// button. (Page)
	TranscriptEmoji = "\U0001F4C4"

	// TicketEmoji is the emoji that will be used for the open ticket button.
	// (Envelope with arrow)
	TicketEmoji = "\U0001F4E9"
)

const (
	// SetupCmdName is the command for setting up the ticket panel.
	SetupCmdName = "setup"

	// TicketCmdName is the command for controlling tickets.
	TicketCmdName = "ticket"

	// ClaimCmdName is the sub command for claiming a ticket.
	ClaimCmdName = "claim"

	// CloseCmdName is the sub command for closing a ticket with confirmation.
	CloseCmdName = "close"

	// ForceCloseCmdName is the sub command for closing a ticket immediately.
	ForceCloseCmdName = "force-close"

	// TranscriptCmdName is the sub command for generating a transcript.
	TranscriptCmdName = "transcript"

	// StatusCmdName is the sub command for showing the ticket's status.
	StatusCmdName = "status"

	// StatsCmdName is the sub command for showing guild ticket stats.
	StatsCmdName = "stats"

	// AddStaffCmdName is the sub command for adding a staff role.
	AddStaffCmdName = "add-staff"

	// UserStaffCmdName is the sub command for adding a staff user.
	UserStaffCmdName = "user-staff"
)

var (
	// setupCmd is the command for setting up the ticket panel.
	setupCmd = &discordgo.ApplicationCommand{
		Name:        SetupCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "Posts the open-ticket panel and configures the staff role.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "channel",
				Type:        discordgo.ApplicationCommandOptionChannel,
				Description: "The channel to post the panel in. Defaults to the current channel.",
			},
			{
				Name:        "staff-role",
				Type:        discordgo.ApplicationCommandOptionRole,
				Description: "The role whose members manage tickets.",
			},
		},
	}

	// ticketCmd is the command for controlling tickets.
	ticketCmd = &discordgo.ApplicationCommand{
		Name:        TicketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for controlling tickets.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        ClaimCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This claims the ticket for the channel that the command was executed in.",
			},
			{
				Name:        CloseCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This asks for confirmation before closing the ticket.",
			},
			{
				Name:        ForceCloseCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This closes the ticket immediately without confirmation.",
			},
			{
				Name:        TranscriptCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This generates a transcript of the ticket without closing it.",
			},
			{
				Name:        StatusCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This shows the status of the ticket for this channel.",
			},
			{
				Name:        StatsCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This shows the guild's ticket statistics.",
			},
			{
				Name:        AddStaffCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This adds a role to the ticket staff.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "role",
						Type:        discordgo.ApplicationCommandOptionRole,
						Description: "The role to add to the ticket staff.",
						Required:    true,
					},
				},
			},
			{
				Name:        UserStaffCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This adds a user to the ticket staff.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "user",
						Type:        discordgo.ApplicationCommandOptionUser,
						Description: "The user to add to the ticket staff.",
						Required:    true,
					},
				},
			},
		},
	}

	// newTicketMessage is the message that is sent when a new ticket is created.
	newTicketMessage = &discordgo.MessageSend{
		Content: `Your ticket has been created.
Please provide any additional info you deem relevant to help us answer faster.`,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Claim", ClaimEmoji),
						Style:    discordgo.PrimaryButton,
						CustomID: ClaimTicketButtonID,
					},
					discordgo.Button{
						Label:    fmt.Sprintf("%s Close", CloseEmoji),
						Style:    discordgo.SecondaryButton,
						CustomID: CloseTicketButtonID,
					},
					discordgo.Button{
						Label:    fmt.Sprintf("%s Transcript", TranscriptEmoji),
						Style:    discordgo.SecondaryButton,
						CustomID: TranscriptButtonID,
					},
				},
			},
		},
	}
)

func setupCmdController(IApp, string) (commandProcessor, error) {
	return setupHandler, nil
}

func ticketCmdController(_ IApp, cmd string) (commandProcessor, error) {
	switch cmd {
	case ClaimCmdName:
		return claimTicketHandler, nil
	case CloseCmdName:
		return closeTicketHandler, nil
	case ForceCloseCmdName:
		return forceCloseHandler, nil
	case TranscriptCmdName:
		return transcriptButtonHandler, nil
	case StatusCmdName:
		return statusHandler, nil
	case StatsCmdName:
		return statsHandler, nil
	case AddStaffCmdName:
		return addStaffHandler, nil
	case UserStaffCmdName:
		return userStaffHandler, nil
	default:
		return nil, fmt.Errorf("unknown subcommand %q", cmd)
	}
}

// setupHandler posts the open-ticket panel and records where it lives, so the
// panel can be recreated later.
func setupHandler(a IApp, i *discordgo.InteractionCreate) error {
	if err := canManageStaff(a, i); err != nil {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	channelID := i.ChannelID
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "channel":
			channelID = opt.ChannelValue(nil).ID
		case "staff-role":
			roleID := opt.RoleValue(nil, "").ID
			if err := a.Staff().AddStaffRole(ctx, i.GuildID, roleID); err != nil && !errors.Is(err, ticketing.ErrAlreadyPresent) {
				return err
			}
		}
	}

	msg, err := sendOpenTicketMessage(a, channelID)
	if err != nil {
		return err
	}

	guild, err := a.GuildDal().GetOrCreateGuild(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild configuration: %w", err)
	}
	guild.SetupChannelID = channelID
	guild.OpenMessageID = msg.ID
	if err := a.GuildDal().SaveGuild(ctx, guild); err != nil {
		return fmt.Errorf("error saving guild configuration: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Ticket panel created in <#%s>.", channelID))
}

func sendOpenTicketMessage(a IApp, channelID string) (*discordgo.Message, error) {
	const messageText = `How can we help?
Welcome to our tickets channel. If you have any questions or inquiries, please click on the button below to contact the staff by opening a ticket!`

	message := discordgo.MessageSend{
		Content: messageText,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Open Ticket", TicketEmoji),
						Style:    discordgo.PrimaryButton,
						CustomID: OpenTicketButtonID,
					},
				},
			},
		},
	}

	msg, err := a.Session().ChannelMessageSendComplex(channelID, &message)
	if err != nil {
		return nil, fmt.Errorf("error sending message: %w", err)
	}
	return msg, nil
}

// createTicket is the function for creating a ticket.
func createTicket(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	user := interactionUser(i)
	ticket, err := a.Manager().RequestCreate(ctx, i.GuildID, user.ID, user.Username)
	if err != nil {
		return err
	}
	TotalTicketTransitions.WithLabelValues("created").Inc()

	go func() {
		if err := setupNewTicketChannel(a, ticket); err != nil {
			a.Log().Error("Error setting up new ticket channel", slog.String(logging.KeyError, err.Error()))
		}
	}()

	// Respond to the interaction saying that the ticket has been created in
	// channel <channel>.
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Ticket Created",
					Description: fmt.Sprintf("<@%s>, your ticket %s has been created.", user.ID, ticket.DisplayID()),
					Color:       0x00ff00,
					Fields: []*discordgo.MessageEmbedField{
						{
							Name:   "Ticket Name",
							Value:  ticket.ChannelName(),
							Inline: true,
						},
						{
							Name:   "Ticket Channel",
							Value:  fmt.Sprintf("<#%s>", ticket.ChannelID),
							Inline: true,
						},
					},
				},
			},
		},
	})
}

func setupNewTicketChannel(a IApp, ticket *entities.Ticket) error {
	// Send the initial message to the channel.
	msg, err := a.Session().ChannelMessageSendComplex(ticket.ChannelID, newTicketMessage)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	// Pin the message to the channel.
	if err := a.Session().ChannelMessagePin(ticket.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("error pinning message: %w", err)
	}
	return nil
}

func claimTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	if err := requireStaff(a, i); err != nil {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	user := interactionUser(i)
	ticket, err := a.Manager().Claim(ctx, i.ChannelID, user.ID)
	if err != nil {
		return err
	}
	TotalTicketTransitions.WithLabelValues("claimed").Inc()

	return respondMessage(a, i, fmt.Sprintf("<@%s> has claimed ticket %s.", user.ID, ticket.DisplayID()))
}

// closeTicketHandler asks for confirmation; nothing changes until the confirm
// button is pressed.
func closeTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	req, err := a.Manager().RequestClose(ctx, i.ChannelID)
	if err != nil {
		return err
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Are you sure you want to close ticket %s?", req.Ticket.DisplayID()),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Close",
							Style:    discordgo.DangerButton,
							CustomID: ConfirmCloseButtonID,
						},
						discordgo.Button{
							Label:    "Cancel",
							Style:    discordgo.SecondaryButton,
							CustomID: CancelCloseButtonID,
						},
					},
				},
			},
		},
	})
}

func confirmCloseHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	user := interactionUser(i)
	res, err := a.Manager().ConfirmClose(ctx, i.ChannelID, user.ID)
	if err != nil {
		return err
	}
	TotalTicketTransitions.WithLabelValues("closed").Inc()

	return respondMessage(a, i, fmt.Sprintf(
		"Ticket %s closed by <@%s>. The transcript has been saved and this channel will be deleted in %d seconds.",
		res.Ticket.DisplayID(), user.ID, int(res.DeleteAfter/time.Second),
	))
}

func cancelCloseHandler(a IApp, i *discordgo.InteractionCreate) error {
	if req := a.Manager().CancelClose(i.ChannelID); req == nil {
		return respondEphemeral(a, i, "There is no pending close to cancel.")
	}
	return respondMessage(a, i, "Close cancelled. The ticket stays open.")
}

func forceCloseHandler(a IApp, i *discordgo.InteractionCreate) error {
	if err := requireStaff(a, i); err != nil {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	user := interactionUser(i)
	res, err := a.Manager().ForceClose(ctx, i.ChannelID, user.ID)
	if err != nil {
		return err
	}
	TotalTicketTransitions.WithLabelValues("closed").Inc()

	return respondMessage(a, i, fmt.Sprintf(
		"Ticket %s force-closed by <@%s>. The transcript has been saved and this channel will be deleted in %d seconds.",
		res.Ticket.DisplayID(), user.ID, int(res.DeleteAfter/time.Second),
	))
}

// transcriptButtonHandler archives the ticket's history without closing it.
func transcriptButtonHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	transcriptID, err := a.Manager().Transcript(ctx, i.ChannelID)
	if err != nil {
		return err
	}

	return respondEphemeral(a, i, fmt.Sprintf("Transcript saved: %s", transcriptURL(transcriptID)))
}

func statusHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	ticket, err := a.TicketDal().GetOpenTicketByChannel(ctx, i.ChannelID)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return ticketing.ErrNotATicketChannel
	} else if err != nil {
		return fmt.Errorf("error getting ticket: %w", err)
	}

	claimedBy := "Unclaimed"
	if ticket.ClaimedBy != nil {
		claimedBy = fmt.Sprintf("<@%s>", *ticket.ClaimedBy)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: fmt.Sprintf("Ticket %s", ticket.DisplayID()),
					Color: 0x5865f2,
					Fields: []*discordgo.MessageEmbedField{
						{Name: "Status", Value: string(ticket.Status), Inline: true},
						{Name: "Priority", Value: string(ticket.Priority), Inline: true},
						{Name: "Opened By", Value: fmt.Sprintf("<@%s>", ticket.UserID), Inline: true},
						{Name: "Claimed By", Value: claimedBy, Inline: true},
						{Name: "Created", Value: ticket.CreatedAt.String(), Inline: true},
					},
				},
			},
		},
	})
}

func statsHandler(a IApp, i *discordgo.InteractionCreate) error {
	ctx, cancel := handlerContext()
	defer cancel()

	stats, err := a.Stats().Snapshot(ctx, i.GuildID)
	if err != nil {
		return err
	}

	rows, err := a.Stats().History(ctx, i.GuildID, 7)
	if err != nil {
		return err
	}

	var weekCreated, weekClosed int
	for _, row := range rows {
		weekCreated += row.TicketsCreated
		weekClosed += row.TicketsClosed
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: "Ticket Statistics",
					Color: 0x5865f2,
					Fields: []*discordgo.MessageEmbedField{
						{Name: "Total", Value: fmt.Sprintf("%d", stats.Total), Inline: true},
						{Name: "Open", Value: fmt.Sprintf("%d", stats.Open), Inline: true},
						{Name: "Claimed", Value: fmt.Sprintf("%d", stats.Claimed), Inline: true},
						{Name: "Closed", Value: fmt.Sprintf("%d", stats.Closed), Inline: true},
						{Name: "Created (7d)", Value: fmt.Sprintf("%d", weekCreated), Inline: true},
						{Name: "Closed (7d)", Value: fmt.Sprintf("%d", weekClosed), Inline: true},
					},
				},
			},
		},
	})
}

func addStaffHandler(a IApp, i *discordgo.InteractionCreate) error {
	if err := canManageStaff(a, i); err != nil {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	var roleID string
	for _, opt := range subcommandOptions(i) {
		if opt.Name == "role" {
			roleID = opt.RoleValue(nil, "").ID
		}
	}
	if roleID == "" {
		return respondEphemeral(a, i, "A role is required.")
	}

	if err := a.Staff().AddStaffRole(ctx, i.GuildID, roleID); err != nil {
		return err
	}
	return respondEphemeral(a, i, fmt.Sprintf("<@&%s> has been added to the ticket staff.", roleID))
}

func userStaffHandler(a IApp, i *discordgo.InteractionCreate) error {
	if err := canManageStaff(a, i); err != nil {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	var userID string
	for _, opt := range subcommandOptions(i) {
		if opt.Name == "user" {
			userID = opt.UserValue(nil).ID
		}
	}
	if userID == "" {
		return respondEphemeral(a, i, "A user is required.")
	}

	if err := a.Staff().AddStaffUser(ctx, i.GuildID, userID); err != nil {
		return err
	}
	return respondEphemeral(a, i, fmt.Sprintf("<@%s> has been added to the ticket staff.", userID))
}
