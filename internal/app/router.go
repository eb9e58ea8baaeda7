package app

import "strings"

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionStartGiveawaySetup
	ActionGiveawaySetupSubmit
	ActionEnterGiveaway
	ActionCreateTicket
	ActionTicketSubmit
	ActionCloseTicketUser
	ActionConfirmClose
	ActionCancelClose
	ActionCloseTicketStaff
	ActionCloseTicketStaffModal
)

// Action is a decoded component or modal custom ID. ChannelID is set only
// for the ticket kinds that carry one.
type Action struct {
	Kind      ActionKind
	ChannelID string
}

var actionNames = map[ActionKind]string{
	ActionStartGiveawaySetup:    "start-giveaway-setup",
	ActionGiveawaySetupSubmit:   "giveaway-setup-modal",
	ActionEnterGiveaway:         "enter-giveaway",
	ActionCreateTicket:          "create-ticket",
	ActionTicketSubmit:          "ticket-modal",
	ActionCloseTicketUser:       "close-ticket-user",
	ActionConfirmClose:          "confirm-close",
	ActionCancelClose:           "cancel-close",
	ActionCloseTicketStaff:      "close-ticket-staff",
	ActionCloseTicketStaffModal: "close-ticket-staff-modal",
}

var actionKinds = func() map[string]ActionKind {
	kinds := make(map[string]ActionKind, len(actionNames))
	for kind, name := range actionNames {
		kinds[name] = kind
	}
	return kinds
}()

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k ActionKind) hasArgument() bool {
	switch k {
	case ActionCloseTicketUser, ActionConfirmClose, ActionCloseTicketStaff, ActionCloseTicketStaffModal:
		return true
	}
	return false
}

// ParseAction splits on the first colon and matches the head exactly, so
// no identifier can be shadowed by another one sharing its prefix.
func ParseAction(customID string) Action {
	name, arg, compound := strings.Cut(customID, ":")

	kind, ok := actionKinds[name]
	if !ok || kind.hasArgument() != compound {
		return Action{}
	}
	if compound && arg == "" {
		return Action{}
	}

	return Action{Kind: kind, ChannelID: arg}
}

func (a Action) CustomID() string {
	if a.Kind.hasArgument() {
		return a.Kind.String() + ":" + a.ChannelID
	}
	return a.Kind.String()
}
