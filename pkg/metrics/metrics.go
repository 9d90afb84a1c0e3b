// Package metrics holds the Prometheus collectors shared by the services and
// the HTTP layer. They are registered on the default registry and served by
// promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Toggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_toggles_total",
			Help: "Availability toggles by resulting action",
		},
		[]string{"action"},
	)
	Blocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_blocks_total",
			Help: "Blocked date writes by result (created, updated, deleted)",
		},
		[]string{"result"},
	)
	CascadeDeletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_cascade_deletions_total",
			Help: "Availability days removed because their date was blocked",
		},
	)
	Invitations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_invitations_total",
			Help: "Invitation lifecycle events by outcome",
		},
		[]string{"outcome"},
	)
	SweeperRepairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_sweeper_repairs_total",
			Help: "Availability days on blocked dates removed by the consistency sweeper",
		},
	)
	RuleRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_rule_rejections_total",
			Help: "Requests rejected by a business rule, by error kind",
		},
		[]string{"kind"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calendar_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(Toggles, Blocks, CascadeDeletions, Invitations, SweeperRepairs, RuleRejections, RequestDuration)
}
