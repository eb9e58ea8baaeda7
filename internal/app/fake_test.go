package app

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/config"
	"github.com/antlu/community-bot/internal/discord"
)

const testGuild = "guild-1"

type sentMessage struct {
	ChannelID string
	Msg       *discordgo.MessageSend
	Files     map[string][]byte
}

// fakeClient is an in-memory guild.
type fakeClient struct {
	mu sync.Mutex

	roles     []*discordgo.Role
	channels  map[string]*discordgo.Channel
	history   map[string][]*discordgo.Message
	occupancy map[string]int
	nextID    int

	sent        []sentMessage
	edits       []*discordgo.MessageEdit
	created     []discordgo.GuildChannelCreateData
	deleted     []string
	deleteCalls int
	roleAdds    [][3]string
	moves       [][3]string
	responses   []*discordgo.InteractionResponse
	responseEds []*discordgo.WebhookEdit
	synced      []*discordgo.ApplicationCommand

	failSend    map[string]error
	failDelete  error
	failMove    error
	failCreate  error
	failHistory error
	failRoles   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		channels:  make(map[string]*discordgo.Channel),
		history:   make(map[string][]*discordgo.Message),
		occupancy: make(map[string]int),
		failSend:  make(map[string]error),
	}
}

func (f *fakeClient) addRole(id, name string) {
	f.roles = append(f.roles, &discordgo.Role{ID: id, Name: name})
}

func (f *fakeClient) addChannel(id, name string, kind discordgo.ChannelType) *discordgo.Channel {
	ch := &discordgo.Channel{ID: id, GuildID: testGuild, Name: name, Type: kind}
	f.channels[id] = ch
	return ch
}

func (f *fakeClient) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeClient) GuildRoles(string) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRoles != nil {
		return nil, f.failRoles
	}
	return f.roles, nil
}

func (f *fakeClient) GuildChannels(string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channels := make([]*discordgo.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		channels = append(channels, ch)
	}
	return channels, nil
}

func (f *fakeClient) Channel(channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, discord.ErrNotFound)
	}
	return ch, nil
}

func (f *fakeClient) CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.created = append(f.created, data)
	ch := &discordgo.Channel{ID: f.id(), GuildID: guildID, Name: data.Name, Type: data.Type, ParentID: data.ParentID}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *fakeClient) DeleteChannel(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete != nil {
		return f.failDelete
	}
	if _, ok := f.channels[channelID]; !ok {
		return discord.ErrNotFound
	}
	delete(f.channels, channelID)
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakeClient) ChannelHistory(channelID string) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failHistory != nil {
		return nil, f.failHistory
	}
	return f.history[channelID], nil
}

func (f *fakeClient) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSend[channelID]; err != nil {
		return nil, err
	}

	files := make(map[string][]byte)
	for _, file := range msg.Files {
		data, err := io.ReadAll(file.Reader)
		if err != nil {
			return nil, err
		}
		files[file.Name] = data
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Msg: msg, Files: files})

	return &discordgo.Message{ID: f.id(), ChannelID: channelID, Content: msg.Content, Embeds: msg.Embeds, Components: msg.Components}, nil
}

func (f *fakeClient) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{ID: edit.ID, ChannelID: edit.Channel}, nil
}

func (f *fakeClient) AddMemberRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleAdds = append(f.roleAdds, [3]string{guildID, userID, roleID})
	return nil
}

func (f *fakeClient) MoveMember(guildID, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMove != nil {
		return f.failMove
	}
	f.moves = append(f.moves, [3]string{guildID, userID, channelID})
	return nil
}

func (f *fakeClient) VoiceOccupancy(_, channelID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.occupancy[channelID], nil
}

func (f *fakeClient) Respond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeClient) EditResponse(_ *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseEds = append(f.responseEds, edit)
	return nil
}

func (f *fakeClient) SyncCommands(_ string, commands []*discordgo.ApplicationCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = commands
	return nil
}

func (f *fakeClient) BotTag() string { return "helper-bot" }

// lastReply returns the text of the most recent private reply, whether it
// was sent directly or by editing a deferred response.
func (f *fakeClient) lastReply(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.responseEds); n > 0 && f.responses[len(f.responses)-1].Type == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		return *f.responseEds[n-1].Content
	}
	require.NotEmpty(t, f.responses)
	resp := f.responses[len(f.responses)-1]
	require.NotNil(t, resp.Data)
	return resp.Data.Content
}

func (f *fakeClient) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1]
}

func (f *fakeClient) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		Token:             "token",
		GuildID:           testGuild,
		CommunityRole:     "Community",
		StaffRole:         "ticket-admin",
		TicketParentID:    "tickets-category",
		ArchiveChannel:    "ticket-archives",
		GiveawayChannelID: "giveaways",
		GiveawayRole:      "giveaway",
		ResultsChannelID:  "results",
		TeamRole:          "TEAM",
		GiveawayMin:       time.Minute,
		GiveawayMax:       24 * time.Hour,
		LobbyChannel:      "Join->Temp-VC",
		TempVoiceParent:   "voice-category",
		TempRoomPrefix:    "VC ",
	}
}

type testEnv struct {
	app    *App
	client *fakeClient
	clock  *fakeClock
	now    time.Time
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	client := newFakeClient()
	client.addRole("role-staff", "ticket-admin")
	client.addRole("role-giveaway", "giveaway")
	client.addRole("role-team", "TEAM")
	client.addRole("role-community", "Community")
	client.addChannel("archive", "ticket-archives", discordgo.ChannelTypeGuildText)
	client.addChannel("giveaways", "giveaways", discordgo.ChannelTypeGuildText)
	client.addChannel("results", "results", discordgo.ChannelTypeGuildText)

	env := &testEnv{
		client: client,
		clock:  &fakeClock{},
		now:    time.Date(2024, 5, 28, 18, 0, 0, 0, time.UTC),
	}
	base := []Option{
		WithAfterFunc(env.clock.AfterFunc),
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return env.now }),
	}
	env.app = New(client, testConfig(), zap.NewNop(), append(base, opts...)...)
	t.Cleanup(env.app.Close)

	return env
}

func member(userID, username string, admin bool) *discordgo.Member {
	m := &discordgo.Member{GuildID: testGuild, User: &discordgo.User{ID: userID, Username: username}}
	if admin {
		m.Permissions = discordgo.PermissionAdministrator
	}
	return m
}

func componentInteraction(m *discordgo.Member, customID string, message *discordgo.Message) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   testGuild,
		ChannelID: "somewhere",
		Member:    m,
		Message:   message,
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}
}

func modalInteraction(m *discordgo.Member, customID string, values map[string]string) *discordgo.Interaction {
	rows := make([]discordgo.MessageComponent, 0, len(values))
	for id, value := range values {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: value},
		}})
	}
	return &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionModalSubmit,
		GuildID:   testGuild,
		ChannelID: "somewhere",
		Member:    m,
		Data:      discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	}
}

func commandInteraction(m *discordgo.Member, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   testGuild,
		ChannelID: "general",
		Member:    m,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: options},
	}
}

var errBoom = errors.New("boom")
