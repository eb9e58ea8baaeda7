package app

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/discord"
)

// responder answers a single interaction. Discord accepts exactly one
// initial response; after Defer, replies edit the deferred message.
type responder struct {
	client   discord.Client
	i        *discordgo.Interaction
	log      *zap.Logger
	answered bool
	deferred bool
}

func (r *responder) respond(resp *discordgo.InteractionResponse) error {
	if err := r.client.Respond(r.i, resp); err != nil {
		return err
	}
	r.answered = true
	return nil
}

// Defer acknowledges the interaction privately so slow work can finish
// past the response deadline.
func (r *responder) Defer() error {
	if err := r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		return err
	}
	r.deferred = true
	return nil
}

func (r *responder) Ephemeral(content string, components ...discordgo.MessageComponent) error {
	if r.deferred {
		edit := &discordgo.WebhookEdit{Content: &content}
		if len(components) > 0 {
			edit.Components = &components
		}
		return r.client.EditResponse(r.i, edit)
	}

	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *responder) Public(data *discordgo.InteractionResponseData) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// Update edits the message the component is attached to.
func (r *responder) Update(data *discordgo.InteractionResponseData) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
}

func (r *responder) Modal(customID, title string, inputs ...discordgo.TextInput) error {
	rows := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, input := range inputs {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{input}})
	}

	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	})
}

// canReply reports whether an error can still be shown to the member.
func (r *responder) canReply() bool {
	return !r.answered || r.deferred
}

func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range row.Components {
			if input, ok := c.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{}
}

func isAdmin(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func buttonRow(buttons ...discordgo.Button) discordgo.ActionsRow {
	components := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, b := range buttons {
		components = append(components, b)
	}
	return discordgo.ActionsRow{Components: components}
}
