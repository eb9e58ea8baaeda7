package app

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
		msg  string
	}{
		{ErrPermissionDenied, "permission_denied", "You do not have permission to do this."},
		{notFound("The TEAM role was not found."), "not_found", "The TEAM role was not found."},
		{fmt.Errorf("lookup: %w", ErrNotFound), "not_found", "That no longer exists."},
		{invalidInput("Bad duration."), "invalid_input", "Bad duration."},
		{fmt.Errorf("%w: %w", ErrArchiveUnavailable, notFound("missing")), "archive_unavailable", "The ticket could not be archived, so it was kept open. Please try again later."},
		{errBoom, "external", "Something went wrong. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, errorKind(tt.err))
			assert.Equal(t, tt.msg, userMessage(tt.err))
		})
	}
}

func TestGuardRecoversPanics(t *testing.T) {
	env := newTestEnv(t)
	i := componentInteraction(member("u-alice", "alice", false), "create-ticket", nil)
	r := &responder{client: env.client, i: i}

	assert.NotPanics(t, func() {
		env.app.guard(r, "test", func() error { panic("kaboom") })
	})
	assert.Equal(t, "Something went wrong. Please try again later.", env.client.lastReply(t))
}

func TestGuardDoesNotReplyTwice(t *testing.T) {
	env := newTestEnv(t)
	i := componentInteraction(member("u-alice", "alice", false), "create-ticket", nil)
	r := &responder{client: env.client, i: i}

	env.app.guard(r, "test", func() error {
		if err := r.Update(&discordgo.InteractionResponseData{Content: "done"}); err != nil {
			return err
		}
		return errBoom
	})

	assert.Len(t, env.client.responses, 1)
}
