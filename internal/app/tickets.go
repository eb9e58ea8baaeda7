package app

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/discord"
)

const (
	embedColor            = 0x00FF00
	embedDescriptionLimit = 4096
	embedFieldLimit       = 1024

	ticketAccess = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory

	ticketPanelText = "Need help or have an issue to report? Click the button below to create a ticket and provide the details of your problem. Our dedicated staff team will assist you as soon as possible.\n\n" +
		"Please be patient and avoid spamming. We aim to respond promptly, but some issues may take time to resolve. Remember to respect the server rules and treat our staff and other members with courtesy.\n\n" +
		"For non-gamebreaking bugs and suggestions, please use the appropriate sections in our forum instead of creating a ticket. This helps us manage and address your input more effectively.\n\n" +
		"Thank you for your understanding and cooperation!"
)

// closeDetails is what staff enter when closing a ticket.
type closeDetails struct {
	Topic   string
	Summary string
}

func (a *App) postTicketPanel(r *responder, i *discordgo.Interaction) error {
	_, err := a.client.SendMessage(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Create a Ticket",
			Description: ticketPanelText,
			Color:       embedColor,
		}},
		Components: []discordgo.MessageComponent{
			buttonRow(discordgo.Button{
				CustomID: Action{Kind: ActionCreateTicket}.CustomID(),
				Label:    "Create Ticket",
				Style:    discordgo.PrimaryButton,
			}),
		},
	})
	if err != nil {
		return fmt.Errorf("error posting ticket panel: %w", err)
	}

	return r.Ephemeral("Ticket system setup complete.")
}

func (a *App) openTicketForm(r *responder) error {
	return r.Modal(Action{Kind: ActionTicketSubmit}.CustomID(), "Create a Ticket",
		discordgo.TextInput{
			CustomID:    "ticket-reason",
			Label:       "Reason for Ticket",
			Style:       discordgo.TextInputShort,
			Placeholder: "Describe the reason for your ticket",
			Required:    true,
			MaxLength:   100,
		},
		discordgo.TextInput{
			CustomID:    "ticket-description",
			Label:       "Detailed Description",
			Style:       discordgo.TextInputParagraph,
			Placeholder: "Provide more details about your issue",
			Required:    true,
			MaxLength:   2000,
		},
	)
}

func (a *App) createTicket(r *responder, i *discordgo.Interaction, values map[string]string) error {
	reason := strings.TrimSpace(values["ticket-reason"])
	description := strings.TrimSpace(values["ticket-description"])
	if reason == "" || description == "" {
		return invalidInput("Please provide both a reason and a description.")
	}

	staff, err := a.roleByName(i.GuildID, a.cfg.StaffRole)
	if err != nil {
		return err
	}

	requester := interactionUser(i)
	channel, err := a.client.CreateChannel(i.GuildID, discordgo.GuildChannelCreateData{
		Name:     "ticket-" + requester.Username,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: a.cfg.TicketParentID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: i.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
			{ID: requester.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketAccess},
			{ID: staff.ID, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketAccess},
		},
	})
	if err != nil {
		return fmt.Errorf("error creating ticket channel: %w", err)
	}
	a.metrics.ticketsOpened.Inc()
	r.log.Info("Ticket created", zap.String("channel_id", channel.ID), zap.String("reason", reason))

	_, err = a.client.SendMessage(channel.ID, &discordgo.MessageSend{
		Content: staff.Mention(),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Ticket Information",
			Description: fmt.Sprintf("**Reason:** %s\n**Description:**\n%s\n\n**Please be patient for a staff member to assist you.**", reason, description),
			Color:       embedColor,
		}},
		Components: []discordgo.MessageComponent{
			buttonRow(
				discordgo.Button{
					CustomID: Action{Kind: ActionCloseTicketUser, ChannelID: channel.ID}.CustomID(),
					Label:    "Close Ticket",
					Style:    discordgo.DangerButton,
				},
				discordgo.Button{
					CustomID: Action{Kind: ActionCloseTicketStaff, ChannelID: channel.ID}.CustomID(),
					Label:    "Close Ticket (Staff)",
					Style:    discordgo.PrimaryButton,
				},
			),
		},
	})
	if err != nil {
		return fmt.Errorf("error posting ticket information to %s: %w", channel.ID, err)
	}

	return r.Ephemeral("Ticket created: " + channel.Mention())
}

func (a *App) requestTicketClose(r *responder, channelID string) error {
	if _, err := a.channel(channelID, "This ticket no longer exists."); err != nil {
		return err
	}

	return r.Ephemeral("Are you sure you want to close this ticket?",
		buttonRow(
			discordgo.Button{
				CustomID: Action{Kind: ActionConfirmClose, ChannelID: channelID}.CustomID(),
				Label:    "Confirm",
				Style:    discordgo.DangerButton,
			},
			discordgo.Button{
				CustomID: Action{Kind: ActionCancelClose}.CustomID(),
				Label:    "Cancel",
				Style:    discordgo.SecondaryButton,
			},
		),
	)
}

func (a *App) confirmTicketClose(r *responder, i *discordgo.Interaction, channelID string) error {
	return a.closeTicket(r, i, channelID, nil)
}

func (a *App) openStaffCloseForm(r *responder, i *discordgo.Interaction, channelID string) error {
	if !isAdmin(i) {
		return ErrPermissionDenied
	}
	if _, err := a.channel(channelID, "This ticket no longer exists."); err != nil {
		return err
	}

	return r.Modal(Action{Kind: ActionCloseTicketStaffModal, ChannelID: channelID}.CustomID(), "Close Ticket",
		discordgo.TextInput{
			CustomID:    "ticket-topic",
			Label:       "Admin Topic",
			Style:       discordgo.TextInputShort,
			Placeholder: "Enter the ticket topic (optional)",
			MaxLength:   100,
		},
		discordgo.TextInput{
			CustomID:    "ticket-summary",
			Label:       "Admin Summary",
			Style:       discordgo.TextInputParagraph,
			Placeholder: "Enter a short summary (optional)",
			MaxLength:   embedFieldLimit,
		},
	)
}

func (a *App) staffCloseTicket(r *responder, i *discordgo.Interaction, channelID string, values map[string]string) error {
	if !isAdmin(i) {
		return ErrPermissionDenied
	}

	details := &closeDetails{
		Topic:   strings.TrimSpace(values["ticket-topic"]),
		Summary: strings.TrimSpace(values["ticket-summary"]),
	}
	if details.Topic == "" {
		details.Topic = "No topic provided"
	}
	if details.Summary == "" {
		details.Summary = "No summary provided"
	}

	return a.closeTicket(r, i, channelID, details)
}

// closeTicket archives the channel's transcript and only then deletes the
// channel. If archiving fails the channel is left untouched.
func (a *App) closeTicket(r *responder, i *discordgo.Interaction, channelID string, details *closeDetails) error {
	channel, err := a.channel(channelID, "This ticket no longer exists.")
	if err != nil {
		return err
	}

	if err := r.Defer(); err != nil {
		return fmt.Errorf("error deferring response: %w", err)
	}

	history, err := a.client.ChannelHistory(channel.ID)
	if err != nil {
		return fmt.Errorf("%w: error fetching history of %s: %w", ErrArchiveUnavailable, channel.ID, err)
	}
	transcript := NewTranscript(history)
	closer := interactionUser(i)

	if err := a.archiveTicket(i.GuildID, channel, closer, transcript, details); err != nil {
		return err
	}

	if err := a.client.DeleteChannel(channel.ID); err != nil {
		return fmt.Errorf("ticket %s archived but not deleted: %w", channel.ID, err)
	}

	closedBy := "user"
	if details != nil {
		closedBy = "staff"
	}
	a.metrics.ticketsClosed.WithLabelValues(closedBy).Inc()
	r.log.Info("Ticket closed", zap.String("channel_id", channel.ID), zap.String("closed_by", closedBy), zap.Int("messages", len(transcript)))

	if a.ledger != nil {
		record := TicketArchive{
			ChannelID:    channel.ID,
			ChannelName:  channel.Name,
			GuildID:      i.GuildID,
			ClosedBy:     closer.ID,
			Transcript:   transcript.String(),
			MessageCount: len(transcript),
			ClosedAt:     a.now(),
		}
		if details != nil {
			record.Topic, record.Summary = details.Topic, details.Summary
		}
		if err := a.ledger.RecordTicketArchive(record); err != nil {
			r.log.Error("Error recording ticket archive", zap.Error(err))
		}
	}

	return r.Ephemeral("Ticket closed and archived.")
}

func (a *App) archiveTicket(guildID string, channel *discordgo.Channel, closer *discordgo.User, transcript Transcript, details *closeDetails) error {
	archive, err := a.channelByName(guildID, a.cfg.ArchiveChannel)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveUnavailable, err)
	}

	csv, err := transcript.CSV()
	if err != nil {
		return fmt.Errorf("%w: error encoding transcript: %w", ErrArchiveUnavailable, err)
	}

	description := transcript.String()
	if description == "" {
		description = "(no messages)"
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Ticket from " + discord.Tag(closer),
		Description: truncate(description, embedDescriptionLimit),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "#" + channel.Name},
	}
	if details != nil {
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Admin Topic", Value: truncate(details.Topic, embedFieldLimit)},
			{Name: "Admin Summary", Value: truncate(details.Summary, embedFieldLimit)},
		}
	}

	_, err = a.client.SendMessage(archive.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{{
			Name:        channel.Name + "-transcript.csv",
			ContentType: "text/csv",
			Reader:      bytes.NewReader(csv),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: error sending transcript: %w", ErrArchiveUnavailable, err)
	}

	return nil
}
