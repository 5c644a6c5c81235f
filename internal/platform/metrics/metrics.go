// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus collectors of the credential flows.

Collectors live on a private [prometheus.Registry] held by [Metrics] rather
than the global default registry, so tests can build as many independent
instances as they need.

# Series

  - authgate_session_cache_lookups_total{op, result}
  - authgate_registrations_total{result}
  - authgate_registration_compensations_total{result}
  - authgate_token_issuance_total{flow}
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authgate"

// Cache lookup results.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Registration and compensation results.
const (
	ResultSuccess     = "success"
	ResultFailed      = "failed"
	ResultCompensated = "compensated"
)

// Metrics groups every collector of the service.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups  *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	Compensations *prometheus.CounterVec
	TokensIssued  *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cache_lookups_total",
			Help:      "Session cache lookups by operation and result.",
		}, []string{"op", "result"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"result"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_compensations_total",
			Help:      "Registration rollbacks by outcome of the compensating actions.",
		}, []string{"result"}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_issuance_total",
			Help:      "Issued token pairs by flow.",
		}, []string{"flow"}),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.Registrations,
		m.Compensations,
		m.TokensIssued,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// # Recorders
//
// The recorders are nil-safe so components can run without metrics in tests.

// CacheLookup counts one cache lookup.
func (m *Metrics) CacheLookup(op, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(op, result).Inc()
}

// Registration counts one registration outcome.
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

// Compensation counts one rollback outcome.
func (m *Metrics) Compensation(result string) {
	if m == nil {
		return
	}
	m.Compensations.WithLabelValues(result).Inc()
}

// TokenIssued counts one issued pair for flow.
func (m *Metrics) TokenIssued(flow string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(flow).Inc()
}
