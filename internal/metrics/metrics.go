// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics provides Prometheus metrics of guest operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guestrun"

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds all guest metrics.
//
// All methods are safe to call on a nil *Metrics, in which case nothing is
// recorded.
type Metrics struct {
	registry *prometheus.Registry

	Boots         *prometheus.CounterVec
	BootAttempts  prometheus.Counter
	BootDuration  prometheus.Histogram
	Probes        *prometheus.CounterVec
	Runs          *prometheus.CounterVec
	Crashes       *prometheus.CounterVec
	GuestsRunning prometheus.Gauge
}

// New creates a new [Metrics] registered with a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Boots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boots_total",
			Help:      "Total number of guest boots by result.",
		}, []string{"result"}),
		BootAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boot_attempts_total",
			Help:      "Total number of liveness probes while booting.",
		}),
		BootDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "boot_duration_seconds",
			Help:      "Time from spawning a guest until it is reachable.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		Probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Total number of liveness probes by result.",
		}, []string{"result"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of commands started in guests by result.",
		}, []string{"result"}),
		Crashes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crashes_total",
			Help:      "Total number of collected guest crashes by kind.",
		}, []string{"kind"}),
		GuestsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "guests_running",
			Help:      "Number of guests currently running.",
		}),
	}
}

func result(ok bool) string {
	if ok {
		return ResultOK
	}

	return ResultFailed
}

// ObserveBoot records a finished boot.
func (m *Metrics) ObserveBoot(ok bool, duration time.Duration) {
	if m == nil {
		return
	}

	m.Boots.WithLabelValues(result(ok)).Inc()

	if ok {
		m.BootDuration.Observe(duration.Seconds())
	}
}

// ObserveBootAttempt records a liveness probe while booting.
func (m *Metrics) ObserveBootAttempt() {
	if m == nil {
		return
	}

	m.BootAttempts.Inc()
}

// ObserveProbe records a liveness probe result.
func (m *Metrics) ObserveProbe(alive bool) {
	if m == nil {
		return
	}

	m.Probes.WithLabelValues(result(alive)).Inc()
}

// ObserveRun records a command started in a guest.
func (m *Metrics) ObserveRun(ok bool) {
	if m == nil {
		return
	}

	m.Runs.WithLabelValues(result(ok)).Inc()
}

// ObserveCrash records a collected crash of the given kind.
func (m *Metrics) ObserveCrash(kind string) {
	if m == nil {
		return
	}

	m.Crashes.WithLabelValues(kind).Inc()
}

// GuestStarted records a spawned guest.
func (m *Metrics) GuestStarted() {
	if m == nil {
		return
	}

	m.GuestsRunning.Inc()
}

// GuestStopped records a stopped guest.
func (m *Metrics) GuestStopped() {
	if m == nil {
		return
	}

	m.GuestsRunning.Dec()
}

// Handler returns an [http.Handler] serving the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
