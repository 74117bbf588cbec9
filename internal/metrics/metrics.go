// Package metrics holds Prometheus instruments that are used across Huelip.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Auth API requests by route and response status.",
		}, []string{"route", "status"})

	ClientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_client_requests_total",
			Help: "Outbound API client calls by method and outcome.",
		}, []string{"method", "outcome"})

	EmailChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_checks_total",
			Help: "Email availability checks by result.",
		}, []string{"result"})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Sessions currently held by the in-memory store.",
		})
)

func init() {
	prometheus.MustRegister(
		AuthRequestsTotal,
		ClientRequestsTotal,
		EmailChecksTotal,
		ActiveSessions,
	)
}
