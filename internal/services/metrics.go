// Prometheus counters for the ticket flow. They live in the service layer so
// every intake path (chat bot, webhook) and every resolution path (answer,
// close) is counted exactly once.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// ticketsCreated counts tickets by intake source (client_bot, n8n_ai).
	ticketsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Total number of support tickets created, by intake source.",
		},
		[]string{"source"},
	)

	// ticketsResolved counts resolutions, split by whether the manager wrote
	// a reply ("answered") or closed the ticket without one ("closed").
	ticketsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_resolved_total",
			Help: "Total number of support tickets resolved, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(ticketsCreated, ticketsResolved)
}
