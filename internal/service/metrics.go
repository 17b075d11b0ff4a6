package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// providerAttempts cuenta intentos por proveedor y resultado (success, timeout, error).
	providerAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax_advisor",
		Subsystem: "router",
		Name:      "attempts_total",
		Help:      "Provider generation attempts by outcome",
	}, []string{"provider", "outcome"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tax_advisor",
		Subsystem: "router",
		Name:      "attempt_latency_seconds",
		Help:      "Provider attempt latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
	}, []string{"provider"})

	// routerExhausted cuenta llamadas donde ningún proveedor respondió.
	routerExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax_advisor",
		Subsystem: "router",
		Name:      "exhausted_total",
		Help:      "Router calls that exhausted every provider",
	}, []string{"reason"})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax_advisor",
		Subsystem: "advisory",
		Name:      "turns_total",
		Help:      "Processed advisory turns by bucket",
	}, []string{"bucket"})

	turnDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax_advisor",
		Subsystem: "advisory",
		Name:      "degradations_total",
		Help:      "Non-fatal degradations reported in turn responses",
	}, []string{"status"})

	sessionUnlocks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tax_advisor",
		Subsystem: "session",
		Name:      "unlocks_total",
		Help:      "Sessions transitioned to unlocked",
	})
)

// RecordProviderAttempt registra el resultado y la latencia de un intento.
func RecordProviderAttempt(provider, outcome string, durationSec float64) {
	providerAttempts.WithLabelValues(provider, outcome).Inc()
	providerLatency.WithLabelValues(provider).Observe(durationSec)
}

// RecordRouterExhausted registra un agotamiento de la cadena ("providers", "ceiling", "empty").
func RecordRouterExhausted(reason string) {
	routerExhausted.WithLabelValues(reason).Inc()
}

// RecordTurn registra un turno procesado y sus degradaciones.
func RecordTurn(bucket string, statuses []string) {
	turnsTotal.WithLabelValues(bucket).Inc()
	for _, s := range statuses {
		turnDegradations.WithLabelValues(s).Inc()
	}
}

// RecordUnlock registra una transición efectiva a unlocked.
func RecordUnlock() {
	sessionUnlocks.Inc()
}
