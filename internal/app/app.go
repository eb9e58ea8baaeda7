package app

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/config"
	"github.com/antlu/community-bot/internal/discord"
)

type App struct {
	client   discord.Client
	cfg      config.Config
	log      *zap.Logger
	registry *Registry
	ledger   *Ledger
	metrics  *metrics
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	reapMu  sync.Mutex
	reaping map[string]time.Time
}

type Option func(*App)

func WithAfterFunc(afterFunc AfterFunc) Option {
	return func(a *App) { a.registry = NewRegistry(afterFunc) }
}

// WithRand fixes the random source used to draw giveaway winners.
func WithRand(rng *rand.Rand) Option {
	return func(a *App) { a.rng = rng }
}

func WithLedger(ledger *Ledger) Option {
	return func(a *App) { a.ledger = ledger }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(client discord.Client, cfg config.Config, log *zap.Logger, opts ...Option) *App {
	a := &App{
		client:   client,
		cfg:      cfg,
		log:      log,
		registry: NewRegistry(nil),
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		reaping:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.metrics = newMetrics(func() float64 { return float64(a.registry.Len()) })

	return a
}

// Register subscribes the app to the gateway events it handles.
func (a *App) Register(s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.Ready) {
		a.log.Info("Logged in", zap.String("user", discord.Tag(e.User)))
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
		a.HandleMemberJoin(e.Member)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) {
		a.HandleInteraction(e.Interaction)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		a.HandleVoiceStateUpdate(e.BeforeUpdate, e.VoiceState)
	})
}

// Close cancels every pending giveaway draw.
func (a *App) Close() {
	if n := a.registry.Stop(); n > 0 {
		a.log.Warn("Cancelled running giveaways", zap.Int("count", n))
	}
}

func (a *App) HandleInteraction(i *discordgo.Interaction) {
	r := &responder{client: a.client, i: i}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		a.guard(r, "command:"+data.Name, func() error {
			return a.handleCommand(r, i, data)
		})
	case discordgo.InteractionMessageComponent:
		action := ParseAction(i.MessageComponentData().CustomID)
		a.guard(r, action.Kind.String(), func() error {
			return a.handleComponent(r, i, action)
		})
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		action := ParseAction(data.CustomID)
		a.guard(r, action.Kind.String(), func() error {
			return a.handleModal(r, i, action, modalValues(data))
		})
	}
}

func (a *App) handleComponent(r *responder, i *discordgo.Interaction, action Action) error {
	switch action.Kind {
	case ActionStartGiveawaySetup:
		return a.openGiveawayForm(r, i)
	case ActionEnterGiveaway:
		return a.enterGiveaway(r, i)
	case ActionCreateTicket:
		return a.openTicketForm(r)
	case ActionCloseTicketUser:
		return a.requestTicketClose(r, action.ChannelID)
	case ActionConfirmClose:
		return a.confirmTicketClose(r, i, action.ChannelID)
	case ActionCancelClose:
		return r.Ephemeral("Ticket closure cancelled.")
	case ActionCloseTicketStaff:
		return a.openStaffCloseForm(r, i, action.ChannelID)
	default:
		return nil
	}
}

func (a *App) handleModal(r *responder, i *discordgo.Interaction, action Action, values map[string]string) error {
	switch action.Kind {
	case ActionTicketSubmit:
		return a.createTicket(r, i, values)
	case ActionCloseTicketStaffModal:
		return a.staffCloseTicket(r, i, action.ChannelID, values)
	case ActionGiveawaySetupSubmit:
		return a.startGiveaway(r, i, values)
	default:
		return nil
	}
}

// guard is the error boundary for every interaction: failures and panics
// are logged and turned into a private reply, never propagated.
func (a *App) guard(r *responder, name string, fn func() error) {
	user := interactionUser(r.i)
	r.log = a.log.With(
		zap.String("event_id", uuid.NewString()),
		zap.String("action", name),
		zap.String("guild_id", r.i.GuildID),
		zap.String("user_id", user.ID),
	)

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Handler panicked", zap.Any("panic", p), zap.Stack("stack"))
			a.fail(r, fmt.Errorf("panic: %v", p))
		}
	}()

	if err := fn(); err != nil {
		a.fail(r, err)
		return
	}
	r.log.Debug("Interaction handled")
}

func (a *App) fail(r *responder, err error) {
	kind := errorKind(err)
	a.metrics.handlerErrors.WithLabelValues(kind).Inc()

	if kind == "external" || kind == "archive_unavailable" {
		r.log.Error("Interaction failed", zap.String("kind", kind), zap.Error(err))
	} else {
		r.log.Info("Interaction rejected", zap.String("kind", kind), zap.Error(err))
	}

	if !r.canReply() {
		return
	}
	if replyErr := r.Ephemeral(userMessage(err)); replyErr != nil {
		r.log.Warn("Error replying to interaction", zap.Error(replyErr))
	}
}

func (a *App) roleByName(guildID, name string) (*discordgo.Role, error) {
	roles, err := a.client.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting roles: %w", err)
	}

	for _, role := range roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, notFound(fmt.Sprintf("The %s role was not found.", name))
}

func (a *App) channelByName(guildID, name string) (*discordgo.Channel, error) {
	channels, err := a.client.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting channels: %w", err)
	}

	for _, channel := range channels {
		if channel.Name == name {
			return channel, nil
		}
	}
	return nil, notFound(fmt.Sprintf("The %s channel was not found.", name))
}

func (a *App) channel(channelID, missing string) (*discordgo.Channel, error) {
	channel, err := a.client.Channel(channelID)
	if errors.Is(err, discord.ErrNotFound) {
		return nil, notFound(missing)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting channel %s: %w", channelID, err)
	}
	return channel, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const marker = "\n…"
	cut := limit - len(marker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], "\n") + marker
}
