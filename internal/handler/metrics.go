package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nahb_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	loginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nahb_logins_total",
		Help: "Total number of successful logins.",
	})

	sessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nahb_play_sessions_started_total",
		Help: "Total number of started play sessions.",
	})

	sessionsEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nahb_play_sessions_ended_total",
		Help: "Total number of play sessions that reached an ending.",
	})

	userBansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nahb_user_bans_total",
		Help: "Total number of user bans issued by admins.",
	})
)
