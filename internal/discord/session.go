package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

const (
	historyPageSize = 100
	maxHistoryPages = 50
)

// Session serves Client from a gateway session, preferring its state
// cache over REST round trips.
type Session struct {
	*discordgo.Session
}

var _ Client = (*Session)(nil)

func NewSession(token string) (*Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates
	s.State.TrackVoice = true

	return &Session{s}, nil
}

func (s *Session) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	if guild, err := s.State.Guild(guildID); err == nil && len(guild.Roles) > 0 {
		return guild.Roles, nil
	}

	roles, err := s.Session.GuildRoles(guildID)
	return roles, translate(err)
}

func (s *Session) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	if guild, err := s.State.Guild(guildID); err == nil && len(guild.Channels) > 0 {
		return guild.Channels, nil
	}

	channels, err := s.Session.GuildChannels(guildID)
	return channels, translate(err)
}

func (s *Session) Channel(channelID string) (*discordgo.Channel, error) {
	if channel, err := s.State.Channel(channelID); err == nil {
		return channel, nil
	}

	channel, err := s.Session.Channel(channelID)
	return channel, translate(err)
}

func (s *Session) CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	channel, err := s.GuildChannelCreateComplex(guildID, data)
	return channel, translate(err)
}

func (s *Session) DeleteChannel(channelID string) error {
	_, err := s.ChannelDelete(channelID)
	return translate(err)
}

func (s *Session) ChannelHistory(channelID string) ([]*discordgo.Message, error) {
	var (
		messages []*discordgo.Message
		beforeID string
	)

	for range maxHistoryPages {
		page, err := s.ChannelMessages(channelID, historyPageSize, beforeID, "", "")
		if err != nil {
			return nil, translate(err)
		}

		messages = append(messages, page...)
		if len(page) < historyPageSize {
			return messages, nil
		}
		beforeID = page[len(page)-1].ID
	}

	return nil, fmt.Errorf("history of %s: %w", channelID, ErrHistoryTooLong)
}

func (s *Session) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	message, err := s.ChannelMessageSendComplex(channelID, msg)
	return message, translate(err)
}

func (s *Session) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	message, err := s.ChannelMessageEditComplex(edit)
	return message, translate(err)
}

func (s *Session) AddMemberRole(guildID, userID, roleID string) error {
	return translate(s.GuildMemberRoleAdd(guildID, userID, roleID))
}

func (s *Session) MoveMember(guildID, userID, channelID string) error {
	return translate(s.GuildMemberMove(guildID, userID, &channelID))
}

// VoiceOccupancy counts members in a voice channel from the gateway
// state cache, which already reflects the event being handled.
func (s *Session) VoiceOccupancy(guildID, channelID string) (int, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return 0, translate(err)
	}

	s.State.RLock()
	defer s.State.RUnlock()

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			count++
		}
	}
	return count, nil
}

func (s *Session) Respond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return translate(s.InteractionRespond(interaction, resp))
}

func (s *Session) EditResponse(interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	_, err := s.InteractionResponseEdit(interaction, edit)
	return translate(err)
}

func (s *Session) SyncCommands(guildID string, commands []*discordgo.ApplicationCommand) error {
	if s.State.User == nil {
		return errors.New("session is not open")
	}

	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, commands)
	return translate(err)
}

func (s *Session) BotTag() string {
	if s.State.User == nil {
		return ""
	}
	return Tag(s.State.User)
}

// Tag is the user's display handle: the bare username for migrated
// accounts, name#discriminator for legacy ones.
func Tag(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, discordgo.ErrStateNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
