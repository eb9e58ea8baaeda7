package app

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	registry *prometheus.Registry

	ticketsOpened      prometheus.Counter
	ticketsClosed      *prometheus.CounterVec
	giveawaysStarted   prometheus.Counter
	giveawaysConcluded prometheus.Counter
	giveawayEntries    prometheus.Counter
	voiceRooms         *prometheus.CounterVec
	rolesAssigned      prometheus.Counter
	handlerErrors      *prometheus.CounterVec
}

func newMetrics(runningGiveaways func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		ticketsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_tickets_opened_total", Help: "Ticket channels created",
		}),
		ticketsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_tickets_closed_total", Help: "Tickets archived and deleted",
		}, []string{"closed_by"}),
		giveawaysStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_giveaways_started_total", Help: "Giveaways announced",
		}),
		giveawaysConcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_giveaways_concluded_total", Help: "Giveaways drawn",
		}),
		giveawayEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_giveaway_entries_total", Help: "Entrants added to giveaways",
		}),
		voiceRooms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_voice_rooms_total", Help: "Temporary voice rooms by lifecycle event",
		}, []string{"event"}),
		rolesAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_join_roles_assigned_total", Help: "Roles given to joining members",
		}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_handler_errors_total", Help: "Interaction failures by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.ticketsOpened,
		m.ticketsClosed,
		m.giveawaysStarted,
		m.giveawaysConcluded,
		m.giveawayEntries,
		m.voiceRooms,
		m.rolesAssigned,
		m.handlerErrors,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bot_giveaways_running", Help: "Giveaways waiting for their draw",
		}, runningGiveaways),
	)

	return m
}
