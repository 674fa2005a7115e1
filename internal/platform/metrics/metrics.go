package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure stages for SubscriptionFailures.
const (
	StageValidation = "validation"
	StagePersist    = "persist"
	StageDispatch   = "dispatch"
	StageLookup     = "lookup"
	StageConfirm    = "confirm"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubscriptionsRegistered prometheus.Counter
	SubscriptionsConfirmed  prometheus.Counter
	SubscriptionFailures    *prometheus.CounterVec
	EmailDispatchDuration   *prometheus.HistogramVec
	HTTPRequestDuration     *prometheus.HistogramVec
}

// New registers all metrics with reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubscriptionsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_subscriptions_registered_total",
			Help: "Total number of subscribers registered and sent a confirmation email",
		}),
		SubscriptionsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_subscriptions_confirmed_total",
			Help: "Total number of successful confirmation link redemptions",
		}),
		SubscriptionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_subscription_failures_total",
			Help: "Subscription workflow failures by stage",
		}, []string{"stage"}),
		EmailDispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsletter_email_dispatch_duration_seconds",
			Help:    "Duration of calls to the email provider",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsletter_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.SubscriptionsRegistered.Inc()
	}
}

func (m *Metrics) IncrementConfirmed() {
	if m != nil {
		m.SubscriptionsConfirmed.Inc()
	}
}

// IncrementFailure records a failure at one of the Stage* stages.
func (m *Metrics) IncrementFailure(stage string) {
	if m != nil {
		m.SubscriptionFailures.WithLabelValues(stage).Inc()
	}
}

// ObserveDispatch satisfies email.Observer.
func (m *Metrics) ObserveDispatch(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EmailDispatchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(route string, elapsed time.Duration) {
	if m != nil {
		m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	}
}
