package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cooldownIdentitiesDesc = prometheus.NewDesc(
		"auraroll_cooldown_identities",
		"Number of identities with a recorded roll in the cooldown tracker",
		nil,
		nil,
	)

	rollOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auraroll_roll_outcomes_total",
		Help: "Total roll transactions by terminal outcome",
	}, []string{"outcome"})

	verificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auraroll_verification_failures_total",
		Help: "Identity verification failures by kind",
	}, []string{"kind"})

	rewardsGranted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auraroll_rewards_granted_total",
		Help: "Rewards successfully granted by reward id",
	}, []string{"reward_id"})

	stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auraroll_step_duration_seconds",
		Help:    "Latency of outbound roll transaction steps",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
)

// Sizer reports how many entries a store holds.
type Sizer interface {
	Len() int
}

// CooldownCollector is a custom Prometheus collector that reads the cooldown
// tracker size on each scrape.
type CooldownCollector struct {
	tracker Sizer
}

// Describe sends the metric descriptor to the channel.
func (c *CooldownCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cooldownIdentitiesDesc
}

// Collect emits the current tracker size as a gauge.
func (c *CooldownCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		cooldownIdentitiesDesc,
		prometheus.GaugeValue,
		float64(c.tracker.Len()),
	)
}

var initOnce sync.Once

// Init registers all collectors with the default registry.
// Must be called once at startup; later calls are ignored.
func Init(tracker Sizer) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			&CooldownCollector{tracker: tracker},
			rollOutcomes,
			verificationFailures,
			rewardsGranted,
			stepDuration,
		)
	})
}

// RecordOutcome counts one finished roll transaction.
func RecordOutcome(outcome string) {
	rollOutcomes.WithLabelValues(outcome).Inc()
}

// RecordVerificationFailure counts a failed identity verification.
func RecordVerificationFailure(kind string) {
	verificationFailures.WithLabelValues(kind).Inc()
}

// RecordGrant counts a reward delivered to an inventory.
func RecordGrant(rewardID string) {
	rewardsGranted.WithLabelValues(rewardID).Inc()
}

// ObserveStep records how long an outbound step took.
func ObserveStep(step string, d time.Duration) {
	stepDuration.WithLabelValues(step).Observe(d.Seconds())
}
