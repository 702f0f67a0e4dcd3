// Package metrics provides Prometheus instrumentation for the pairing bot. It
// exposes gauges for pool and chat sizes, counters for relayed messages and
// abuse outcomes, and a histogram of how long users wait for a partner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WaitingUsers tracks the current size of the waiting pool.
	WaitingUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairbot_waiting_users",
		Help: "Current number of users waiting for a partner",
	})

	// ActiveChats tracks the current number of active chats.
	ActiveChats = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairbot_active_chats",
		Help: "Current number of active chats",
	})

	// MessagesTotal counts chat messages by outcome: "text", "media",
	// "too_early", "media_limited" or "rejected".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairbot_messages_total",
		Help: "Total number of chat messages processed",
	}, []string{"type"})

	// DeliveryFailures counts messages the transport could not deliver.
	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairbot_delivery_failures_total",
		Help: "Total number of failed deliveries to chat partners",
	})

	// MatchDuration records the time from search to partner found.
	MatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pairbot_match_duration_seconds",
		Help:    "Time from search to partner found",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 240, 300},
	})

	// SearchOutcomes counts finished searches: "matched", "timeout" or "cancelled".
	SearchOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairbot_search_outcomes_total",
		Help: "Total number of finished searches by outcome",
	}, []string{"outcome"})

	// CaptchaTotal counts captcha events: "issued", "solved", "failed" or "banned".
	CaptchaTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairbot_captcha_total",
		Help: "Total number of captcha events",
	}, []string{"outcome"})

	// BansTotal counts applied bans by reason: "captcha" or "admin".
	BansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairbot_bans_total",
		Help: "Total number of bans applied",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		WaitingUsers,
		ActiveChats,
		MessagesTotal,
		DeliveryFailures,
		MatchDuration,
		SearchOutcomes,
		CaptchaTotal,
		BansTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
