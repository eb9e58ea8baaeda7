package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/antlu/community-bot/internal/discord"
)

var adminPerm int64 = discordgo.PermissionAdministrator

func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "giveaway-setup",
			Description:              "Setup a giveaway through an admin-only channel",
			DefaultMemberPermissions: &adminPerm,
		},
		{
			Name:                     "ticket-setup",
			Description:              "Sets up the ticket system",
			DefaultMemberPermissions: &adminPerm,
		},
		{
			Name:                     "create-embed",
			Description:              "Create a custom embedded message",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "The title of the embedded message",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "The description of the embedded message",
				},
			},
		},
	}
}

// SyncCommands overwrites the guild's commands with Commands.
func (a *App) SyncCommands() error {
	if err := a.client.SyncCommands(a.cfg.GuildID, Commands()); err != nil {
		return fmt.Errorf("error syncing commands: %w", err)
	}
	return nil
}

func (a *App) handleCommand(r *responder, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) error {
	if !isAdmin(i) {
		return ErrPermissionDenied
	}

	switch data.Name {
	case "giveaway-setup":
		return a.postGiveawayPanel(r)
	case "ticket-setup":
		return a.postTicketPanel(r, i)
	case "create-embed":
		return a.createEmbed(r, i, data.Options)
	default:
		return nil
	}
}

func (a *App) createEmbed(r *responder, i *discordgo.Interaction, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	var title, description string
	for _, opt := range options {
		switch opt.Name {
		case "title":
			title = strings.TrimSpace(opt.StringValue())
		case "description":
			description = strings.TrimSpace(opt.StringValue())
		}
	}
	if title == "" && description == "" {
		return invalidInput("Please provide a title or a description.")
	}

	_, err := a.client.SendMessage(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       truncate(title, 256),
			Description: truncate(description, embedDescriptionLimit),
			Color:       embedColor,
			Timestamp:   a.now().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: "Sent by " + discord.Tag(interactionUser(i))},
		}},
	})
	if err != nil {
		return fmt.Errorf("error sending embed: %w", err)
	}

	return r.Ephemeral("Embedded message sent.")
}
