package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/discord"
)

const noParticipants = "No participants"

func (a *App) postGiveawayPanel(r *responder) error {
	return r.Public(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Giveaway Setup",
			Description: "Click the button below to start setting up a giveaway.",
			Color:       embedColor,
		}},
		Components: []discordgo.MessageComponent{
			buttonRow(discordgo.Button{
				CustomID: Action{Kind: ActionStartGiveawaySetup}.CustomID(),
				Label:    "Start Giveaway Setup",
				Style:    discordgo.PrimaryButton,
			}),
		},
	})
}

func (a *App) openGiveawayForm(r *responder, i *discordgo.Interaction) error {
	if !isAdmin(i) {
		return ErrPermissionDenied
	}

	return r.Modal(Action{Kind: ActionGiveawaySetupSubmit}.CustomID(), "Giveaway Setup",
		discordgo.TextInput{
			CustomID:    "giveaway-title",
			Label:       "Giveaway Title",
			Style:       discordgo.TextInputShort,
			Placeholder: "Enter the title of the giveaway",
			Required:    true,
			MaxLength:   200,
		},
		discordgo.TextInput{
			CustomID:    "giveaway-description",
			Label:       "Giveaway Description",
			Style:       discordgo.TextInputParagraph,
			Placeholder: "Enter the description of the giveaway",
			Required:    true,
			MaxLength:   2000,
		},
		discordgo.TextInput{
			CustomID:    "giveaway-duration",
			Label:       "Giveaway Duration (in minutes)",
			Style:       discordgo.TextInputShort,
			Placeholder: "Enter the duration of the giveaway in minutes",
			Required:    true,
			MaxLength:   6,
		},
	)
}

// parseDuration reads a whole number of minutes within the configured
// bounds.
func (a *App) parseDuration(raw string) (time.Duration, error) {
	minMinutes := int(a.cfg.GiveawayMin / time.Minute)
	maxMinutes := int(a.cfg.GiveawayMax / time.Minute)
	bounds := fmt.Sprintf("between %d and %d", minMinutes, maxMinutes)

	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalidInput(fmt.Sprintf("The duration must be a whole number of minutes %s.", bounds))
	}

	if minutes <= 0 || minutes < minMinutes || minutes > maxMinutes {
		return 0, invalidInput(fmt.Sprintf("The duration must be %s minutes.", bounds))
	}

	return time.Duration(minutes) * time.Minute, nil
}

func (a *App) startGiveaway(r *responder, i *discordgo.Interaction, values map[string]string) error {
	if !isAdmin(i) {
		return ErrPermissionDenied
	}

	title := strings.TrimSpace(values["giveaway-title"])
	description := strings.TrimSpace(values["giveaway-description"])
	if title == "" || description == "" {
		return invalidInput("Please provide both a title and a description.")
	}

	duration, err := a.parseDuration(values["giveaway-duration"])
	if err != nil {
		return err
	}

	mention := ""
	role, err := a.roleByName(i.GuildID, a.cfg.GiveawayRole)
	switch {
	case err == nil:
		mention = role.Mention()
	case errors.Is(err, ErrNotFound):
		r.log.Warn("Giveaway role not found", zap.String("role", a.cfg.GiveawayRole))
	default:
		return err
	}

	channelID := a.cfg.GiveawayChannelID
	if channelID == "" {
		channelID = i.ChannelID
	}

	g := Giveaway{
		GuildID:     i.GuildID,
		ChannelID:   channelID,
		Title:       title,
		Description: description,
		StartedBy:   discord.Tag(interactionUser(i)),
		Duration:    duration,
		CreatedAt:   a.now(),
	}

	message, err := a.client.SendMessage(channelID, &discordgo.MessageSend{
		Content:    mention,
		Embeds:     []*discordgo.MessageEmbed{a.giveawayEmbed(g)},
		Components: []discordgo.MessageComponent{enterGiveawayRow()},
	})
	if err != nil {
		return fmt.Errorf("error posting giveaway announcement: %w", err)
	}
	g.MessageID = message.ID

	if err := a.registry.Start(g, a.concludeGiveaway); err != nil {
		return err
	}
	a.metrics.giveawaysStarted.Inc()
	r.log.Info("Giveaway started", zap.String("giveaway_id", g.MessageID), zap.Duration("duration", duration))

	return r.Ephemeral("Giveaway setup complete.")
}

func (a *App) enterGiveaway(r *responder, i *discordgo.Interaction) error {
	if i.Message == nil {
		return notFound("This giveaway no longer exists.")
	}

	user := interactionUser(i)
	g, added, err := a.registry.Enter(i.Message.ID, user.ID)
	if err != nil {
		return err
	}
	if added {
		a.metrics.giveawayEntries.Inc()
	}

	return r.Update(&discordgo.InteractionResponseData{
		Content:    i.Message.Content,
		Embeds:     []*discordgo.MessageEmbed{a.giveawayEmbed(g)},
		Components: i.Message.Components,
	})
}

// concludeGiveaway runs on the giveaway's timer. Taking the entry out of
// the registry first closes it to new entrants before the draw.
func (a *App) concludeGiveaway(id string) {
	log := a.log.With(zap.String("event_id", uuid.NewString()), zap.String("giveaway_id", id))
	defer func() {
		if p := recover(); p != nil {
			log.Error("Giveaway conclusion panicked", zap.Any("panic", p), zap.Stack("stack"))
		}
	}()

	g, ok := a.registry.Take(id)
	if !ok {
		log.Debug("Giveaway already concluded")
		return
	}

	winnerID, drawn := a.drawWinner(g.Entrants)
	winner := noParticipants
	if drawn {
		winner = "<@" + winnerID + ">"
	}
	a.metrics.giveawaysConcluded.Inc()
	log.Info("Giveaway concluded", zap.Int("entrants", len(g.Entrants)), zap.String("winner_id", winnerID))

	edit := discordgo.NewMessageEdit(g.ChannelID, g.MessageID).
		SetContent("The giveaway has ended!").
		SetEmbeds([]*discordgo.MessageEmbed{{
			Title:       "Giveaway Ended: " + g.Title,
			Description: fmt.Sprintf("%s\n\nWinner: %s", g.Description, winner),
			Color:       embedColor,
			Timestamp:   a.now().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: "Ended by " + a.client.BotTag()},
		}})
	edit.Components = &[]discordgo.MessageComponent{}
	if _, err := a.client.EditMessage(edit); err != nil {
		log.Error("Error editing giveaway announcement", zap.Error(err))
	}

	content := "The giveaway has ended! Winner: " + winner
	role, err := a.roleByName(g.GuildID, a.cfg.TeamRole)
	switch {
	case err == nil:
		content = role.Mention() + "\n" + content
	case errors.Is(err, ErrNotFound):
		log.Warn("Team role not found", zap.String("role", a.cfg.TeamRole))
	default:
		log.Error("Error getting team role", zap.Error(err))
	}

	resultsID := a.cfg.ResultsChannelID
	if resultsID == "" {
		resultsID = g.ChannelID
	}
	if _, err := a.client.SendMessage(resultsID, &discordgo.MessageSend{Content: content}); err != nil {
		log.Error("Error posting giveaway result", zap.Error(err))
	}

	if a.ledger != nil {
		err = a.ledger.RecordGiveawayResult(GiveawayResult{
			MessageID:   g.MessageID,
			GuildID:     g.GuildID,
			Title:       g.Title,
			WinnerID:    winnerID,
			Entrants:    g.Entrants,
			StartedAt:   g.CreatedAt,
			ConcludedAt: a.now(),
		})
		if err != nil {
			log.Error("Error recording giveaway result", zap.Error(err))
		}
	}
}

// drawWinner picks uniformly from entrants. It draws nothing from the
// random source when there are no entrants.
func (a *App) drawWinner(entrants []string) (string, bool) {
	if len(entrants) == 0 {
		return "", false
	}

	a.rngMu.Lock()
	idx := a.rng.Intn(len(entrants))
	a.rngMu.Unlock()

	return entrants[idx], true
}

func (a *App) giveawayEmbed(g Giveaway) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Giveaway: " + g.Title,
		Description: fmt.Sprintf("%s\n\nTo participate in this giveaway, click the button below.\n\nParticipants: %d", g.Description, len(g.Entrants)),
		Color:       embedColor,
		Timestamp:   g.CreatedAt.Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Started by " + g.StartedBy},
	}
}

func enterGiveawayRow() discordgo.ActionsRow {
	return buttonRow(discordgo.Button{
		CustomID: Action{Kind: ActionEnterGiveaway}.CustomID(),
		Label:    "Enter Giveaway",
		Style:    discordgo.PrimaryButton,
	})
}
