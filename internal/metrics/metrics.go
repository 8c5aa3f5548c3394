// internal/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus counters for the service. All metrics are
// prefixed with "portfolio_".
type Metrics struct {
	SyncRunsTotal       *prometheus.CounterVec // labels: type, status
	ReposProcessedTotal prometheus.Counter
	WebhookEventsTotal  *prometheus.CounterVec // label: event
	ContactEmailsTotal  *prometheus.CounterVec // label: outcome
}

// New creates and registers the service metrics. Registration happens once
// globally to avoid duplicate-collector panics when called from tests.
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			SyncRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "portfolio_sync_runs_total",
					Help: "Total number of sync orchestration runs",
				},
				[]string{"type", "status"},
			),
			ReposProcessedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "portfolio_repos_processed_total",
					Help: "Total number of repositories upserted by sync runs",
				},
			),
			WebhookEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "portfolio_webhook_events_total",
					Help: "Total number of webhook events received",
				},
				[]string{"event"},
			),
			ContactEmailsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "portfolio_contact_emails_total",
					Help: "Total number of contact-form email attempts",
				},
				[]string{"outcome"}, // "sent" or "failed"
			),
		}
	})
	return globalMetrics
}
