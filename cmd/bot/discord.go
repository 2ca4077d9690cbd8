package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/ticketing"
)

// ticketCategoryName is the name of the category ticket channels live under.
const ticketCategoryName = "Tickets"

// discordProvisioner implements ticketing.ChannelProvisioner on the discord
// session.
type discordProvisioner struct {
	a IApp
}

func newDiscordProvisioner(a IApp) ticketing.ChannelProvisioner {
	return &discordProvisioner{a: a}
}

func (p *discordProvisioner) EnsureCategory(_ context.Context, guildID, categoryID string) (string, error) {
	if categoryID != "" {
		if _, err := p.a.Session().Channel(categoryID); err == nil {
			return categoryID, nil
		}
		p.a.Log().Warn("Ticket category no longer exists, recreating it",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyChannelID, categoryID),
		)
	}

	category, err := p.a.Session().GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: ticketCategoryName,
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			// Deny @everyone from seeing ticket channels.
			{
				ID:   guildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionAll,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating category: %w", err)
	}
	return category.ID, nil
}

func (p *discordProvisioner) Create(_ context.Context, guildID, name, parentID string, spec ticketing.PermissionSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionAll,
		},
		// The creator of the ticket can see the ticket.
		{
			ID:    spec.UserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionAllText,
			Deny:  discordgo.PermissionMentionEveryone,
		},
	}

	for _, roleID := range spec.StaffRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionAllText,
			Deny:  discordgo.PermissionMentionEveryone,
		})
	}

	for _, userID := range spec.StaffUserIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionAllText,
			Deny:  discordgo.PermissionMentionEveryone,
		})
	}

	channel, err := p.a.Session().GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                "Support ticket",
		ParentID:             parentID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", fmt.Errorf("error creating ticket channel: %w", err)
	}
	return channel.ID, nil
}

func (p *discordProvisioner) Delete(_ context.Context, channelID string) error {
	if _, err := p.a.Session().ChannelDelete(channelID); err != nil {
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

func (p *discordProvisioner) FetchHistory(_ context.Context, channelID string, limit int) ([]entities.TranscriptMessage, error) {
	msgs, err := p.a.Session().ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("error fetching channel history: %w", err)
	}

	// The API returns newest first; transcripts are chronological.
	out := make([]entities.TranscriptMessage, 0, len(msgs))
	for idx := len(msgs) - 1; idx >= 0; idx-- {
		out = append(out, messageToEntity(msgs[idx]))
	}
	return out, nil
}

func messageToEntity(m *discordgo.Message) entities.TranscriptMessage {
	msg := entities.TranscriptMessage{
		MessageID: m.ID,
		Content:   m.Content,
		Timestamp: custom.Datetime(m.Timestamp),
	}

	if m.Author != nil {
		msg.Author = entities.MessageAuthor{
			ID:            m.Author.ID,
			Username:      m.Author.Username,
			Discriminator: m.Author.Discriminator,
			Avatar:        m.Author.Avatar,
		}
	}

	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, entities.Attachment{
			Name: att.Filename,
			URL:  att.URL,
			Size: att.Size,
		})
	}

	for _, emb := range m.Embeds {
		msg.Embeds = append(msg.Embeds, entities.EmbedSnapshot{
			Title:       emb.Title,
			Description: emb.Description,
			URL:         emb.URL,
			Color:       emb.Color,
		})
	}
	return msg
}

// discordNotifier DMs the ticket requester their transcript reference after a
// close.
type discordNotifier struct {
	a IApp
}

func newDiscordNotifier(a IApp) ticketing.Notifier {
	return &discordNotifier{a: a}
}

func (n *discordNotifier) DeliverTranscript(_ context.Context, userID string, ticket *entities.Ticket, transcriptID string) error {
	channel, err := n.a.Session().UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error opening DM channel: %w", err)
	}

	content := fmt.Sprintf("Your ticket %s has been closed. Transcript: %s", ticket.DisplayID(), transcriptURL(transcriptID))
	if _, err := n.a.Session().ChannelMessageSend(channel.ID, content); err != nil {
		return fmt.Errorf("error sending DM: %w", err)
	}
	return nil
}

// messageCreateHandler records live messages in ticket channels so the
// transcript is built as the conversation happens.
func messageCreateHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}

		ctx, cancel := handlerContext()
		defer cancel()

		msg := messageToEntity(m.Message)
		if err := a.Manager().CaptureMessage(ctx, m.ChannelID, &msg); err != nil {
			a.Log().Error("Error capturing ticket message",
				slog.String(logging.KeyChannelID, m.ChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}
