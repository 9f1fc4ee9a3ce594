package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_rounds_started_total",
		Help: "Rounds started across all rooms.",
	})
	metricGamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_games_started_total",
		Help: "Games started across all rooms.",
	})
	metricAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_answers_total",
		Help: "Terminal answers recorded, by mode and outcome.",
	}, []string{"mode", "outcome"})
	metricRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_submission_rejects_total",
		Help: "Rejected submissions by reason code.",
	}, []string{"reason"})
	metricBotsAttached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_bots_attached_total",
		Help: "Bot attachments performed by the traffic controller.",
	})
	metricBotsRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_bots_retired_total",
		Help: "Bot sessions retired by the traffic controller.",
	})
)

func outcomeLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "wrong"
}
