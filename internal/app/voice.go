package app

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/discord"
)

// HandleVoiceStateUpdate spawns a room when a member joins the lobby and
// reaps the room they left once it is empty. before is nil when the
// state cache had no previous state for the member.
func (a *App) HandleVoiceStateUpdate(before, after *discordgo.VoiceState) {
	if after == nil {
		return
	}

	log := a.log.With(
		zap.String("event_id", uuid.NewString()),
		zap.String("guild_id", after.GuildID),
		zap.String("user_id", after.UserID),
	)
	defer func() {
		if p := recover(); p != nil {
			log.Error("Voice handler panicked", zap.Any("panic", p), zap.Stack("stack"))
		}
	}()

	var previous string
	if before != nil {
		previous = before.ChannelID
	}
	if previous == after.ChannelID {
		return
	}

	if after.ChannelID != "" {
		a.spawnRoom(log, after)
	}
	if previous != "" {
		a.reapRoom(log, after.GuildID, previous)
	}
}

func (a *App) spawnRoom(log *zap.Logger, state *discordgo.VoiceState) {
	lobby, err := a.client.Channel(state.ChannelID)
	if err != nil {
		log.Warn("Error getting joined channel", zap.String("channel_id", state.ChannelID), zap.Error(err))
		return
	}
	if lobby.Name != a.cfg.LobbyChannel {
		return
	}

	name := state.UserID
	if state.Member != nil && state.Member.User != nil {
		name = state.Member.User.Username
	}

	room, err := a.client.CreateChannel(state.GuildID, discordgo.GuildChannelCreateData{
		Name:     a.cfg.TempRoomPrefix + name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: a.cfg.TempVoiceParent,
	})
	if err != nil {
		log.Error("Failed to create temporary channel", zap.Error(err))
		return
	}
	a.metrics.voiceRooms.WithLabelValues("created").Inc()

	if err := a.client.MoveMember(state.GuildID, state.UserID, room.ID); err != nil {
		log.Error("Failed to move member into temporary channel", zap.String("channel_id", room.ID), zap.Error(err))
		// Nobody will ever leave the room, so no event would reap it.
		a.deleteRoom(log, room)
		return
	}

	log.Info("Created temporary channel", zap.String("channel_id", room.ID), zap.String("name", room.Name))
}

func (a *App) reapRoom(log *zap.Logger, guildID, channelID string) {
	channel, err := a.client.Channel(channelID)
	if errors.Is(err, discord.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn("Error getting left channel", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	if !strings.HasPrefix(channel.Name, a.cfg.TempRoomPrefix) {
		return
	}

	occupants, err := a.client.VoiceOccupancy(guildID, channelID)
	if err != nil {
		log.Warn("Error counting voice occupants", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	if occupants > 0 {
		return
	}

	a.deleteRoom(log, channel)
}

// reapClaimTTL is how long a deleted room's claim is kept to absorb
// updates that still name it.
const reapClaimTTL = time.Minute

// deleteRoom deletes a temporary room at most once per channel ID.
func (a *App) deleteRoom(log *zap.Logger, room *discordgo.Channel) {
	now := a.now()

	a.reapMu.Lock()
	for id, claimedAt := range a.reaping {
		if now.Sub(claimedAt) > reapClaimTTL {
			delete(a.reaping, id)
		}
	}
	if _, claimed := a.reaping[room.ID]; claimed {
		a.reapMu.Unlock()
		return
	}
	a.reaping[room.ID] = now
	a.reapMu.Unlock()

	err := a.client.DeleteChannel(room.ID)
	if err != nil && !errors.Is(err, discord.ErrNotFound) {
		a.reapMu.Lock()
		delete(a.reaping, room.ID)
		a.reapMu.Unlock()

		log.Error("Failed to delete temporary channel", zap.String("channel_id", room.ID), zap.Error(err))
		return
	}

	a.metrics.voiceRooms.WithLabelValues("deleted").Inc()
	log.Info("Deleted temporary channel because it was empty", zap.String("channel_id", room.ID), zap.String("name", room.Name))
}
