// Package metrics instruments the validation engine with Prometheus
// counters and histograms.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's collectors. A nil *Metrics is a valid no-op
// receiver so call sites never need to guard.
type Metrics struct {
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	probeDuration    *prometheus.HistogramVec
	validationScore  prometheus.Histogram
	validations      *prometheus.CounterVec
	rateLimitDenials *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg. A nil reg yields
// a nil *Metrics (all recording becomes a no-op).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verimail_cache_hits_total",
			Help: "Cache hits by cache name.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verimail_cache_misses_total",
			Help: "Cache misses by cache name.",
		}, []string{"cache"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verimail_probe_duration_seconds",
			Help:    "Wall time per probe.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2.5, 12),
		}, []string{"probe"}),
		validationScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verimail_validation_score",
			Help:    "Distribution of final validation scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verimail_validations_total",
			Help: "Completed validations by deliverability verdict.",
		}, []string{"deliverability"}),
		rateLimitDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verimail_rate_limit_denials_total",
			Help: "Rate limiter denials by scope.",
		}, []string{"scope"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "verimail_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half_open, 2=open).",
		}, []string{"breaker"}),
	}

	reg.MustRegister(
		m.cacheHits, m.cacheMisses, m.probeDuration, m.validationScore,
		m.validations, m.rateLimitDenials, m.breakerState,
	)
	return m
}

// RecordCacheHit counts a hit on the named cache.
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a miss on the named cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// ObserveProbe records the wall time of one probe run.
func (m *Metrics) ObserveProbe(probe string, d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.WithLabelValues(probe).Observe(d.Seconds())
}

// RecordValidation records a completed validation and its score.
func (m *Metrics) RecordValidation(deliverability string, score int) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(deliverability).Inc()
	m.validationScore.Observe(float64(score))
}

// RecordRateLimitDenial counts a limiter block in the given scope.
func (m *Metrics) RecordRateLimitDenial(scope string) {
	if m == nil {
		return
	}
	m.rateLimitDenials.WithLabelValues(scope).Inc()
}

// SetBreakerState reflects a breaker state transition.
func (m *Metrics) SetBreakerState(name, state string) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(name).Set(v)
}
