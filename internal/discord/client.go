// Package discord is the bot's narrow view of the Discord REST API and
// gateway state cache.
package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrHistoryTooLong means a channel holds more messages than
	// ChannelHistory will page through.
	ErrHistoryTooLong = errors.New("history exceeds page limit")
)

// Client is everything the bot asks of the platform. Session is the
// production implementation.
type Client interface {
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	GuildChannels(guildID string) ([]*discordgo.Channel, error)
	Channel(channelID string) (*discordgo.Channel, error)
	CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	DeleteChannel(channelID string) error

	// ChannelHistory returns every message in the channel, newest first,
	// as the API pages them. It never returns a partial history.
	ChannelHistory(channelID string) ([]*discordgo.Message, error)
	SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error)

	AddMemberRole(guildID, userID, roleID string) error
	MoveMember(guildID, userID, channelID string) error
	VoiceOccupancy(guildID, channelID string) (int, error)

	Respond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	EditResponse(interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) error
	SyncCommands(guildID string, commands []*discordgo.ApplicationCommand) error

	BotTag() string
}
