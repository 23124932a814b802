// Package metrics records deployment outcomes and phase durations for CI
// dashboards. Metrics are written in Prometheus text format to a
// node-exporter textfile when twx.yaml configures a path; there is no HTTP
// endpoint in a short-lived CLI.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects metrics for one deployment run.
type Recorder struct {
	registry *prometheus.Registry
	textfile string

	deployments   *prometheus.CounterVec
	phaseDuration *prometheus.GaugeVec
	refreshes     *prometheus.CounterVec
}

// New creates a recorder. An empty textfile path disables Flush.
func New(textfile string) *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		textfile: textfile,
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twxdeploy_deployments_total",
			Help: "Deployment attempts by environment and outcome",
		}, []string{"environment", "outcome"}),
		phaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "twxdeploy_phase_duration_seconds",
			Help: "Duration of each deployment phase in the last run",
		}, []string{"phase"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "twxdeploy_credential_refreshes_total",
			Help: "Credential refresh attempts by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(r.deployments, r.phaseDuration, r.refreshes)
	return r
}

// RecordOutcome counts a finished deployment.
func (r *Recorder) RecordOutcome(environment, outcome string) {
	r.deployments.WithLabelValues(environment, outcome).Inc()
}

// RecordPhase stores the duration of a completed phase.
func (r *Recorder) RecordPhase(phase string, d time.Duration) {
	r.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

// RecordRefresh counts a credential refresh attempt.
func (r *Recorder) RecordRefresh(outcome string) {
	r.refreshes.WithLabelValues(outcome).Inc()
}

// Flush writes the collected metrics to the configured textfile. A no-op
// when no path is configured.
func (r *Recorder) Flush() error {
	if r.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(r.textfile, r.registry)
}
