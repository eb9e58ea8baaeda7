package app

import (
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/discord"
)

// HandleMemberJoin gives a new member the community role. A missing role
// is logged and otherwise ignored.
func (a *App) HandleMemberJoin(member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}

	log := a.log.With(
		zap.String("event_id", uuid.NewString()),
		zap.String("guild_id", member.GuildID),
		zap.String("user_id", member.User.ID),
	)
	defer func() {
		if p := recover(); p != nil {
			log.Error("Join handler panicked", zap.Any("panic", p), zap.Stack("stack"))
		}
	}()

	role, err := a.roleByName(member.GuildID, a.cfg.CommunityRole)
	if err != nil {
		log.Warn("Role not found", zap.String("role", a.cfg.CommunityRole), zap.Error(err))
		return
	}

	if err := a.client.AddMemberRole(member.GuildID, member.User.ID, role.ID); err != nil {
		log.Error("Failed to assign role", zap.String("role", role.Name), zap.Error(err))
		return
	}

	a.metrics.rolesAssigned.Inc()
	log.Info("Assigned role", zap.String("role", role.Name), zap.String("user", discord.Tag(member.User)))
}
