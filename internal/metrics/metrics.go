// Package metrics holds the Prometheus instruments for the session subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reminder_bff"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeShared  = "shared"
)

// Metrics groups the counters recorded by the refresh engine, resolver,
// enricher, gate and sign-in handlers. A nil *Metrics records nothing.
type Metrics struct {
	refreshes     *prometheus.CounterVec
	enrichments   *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	gateRedirects prometheus.Counter
	signIns       *prometheus.CounterVec
	refreshTime   prometheus.Histogram
}

// New registers the instruments with reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts against the identity provider",
		}, []string{"outcome"}),
		enrichments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_enrichment_total",
			Help:      "Backend profile enrichment attempts",
		}, []string{"outcome"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolve_total",
			Help:      "Session resolutions by result",
		}, []string{"result"}),
		gateRedirects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_gate_redirects_total",
			Help:      "Requests redirected to the login page by the access gate",
		}),
		signIns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_in_total",
			Help:      "Sign-in attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		refreshTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_refresh_duration_seconds",
			Help:      "Duration of identity provider refresh calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Refresh(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	if outcome != OutcomeShared {
		m.refreshTime.Observe(seconds)
	}
}

func (m *Metrics) Enrichment(outcome string) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Resolution(result string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) GateRedirect() {
	if m == nil {
		return
	}
	m.gateRedirects.Inc()
}

func (m *Metrics) SignIn(provider, outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(provider, outcome).Inc()
}
