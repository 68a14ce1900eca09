// Package healthcheck metrics integration
// Provides Prometheus metrics for health check monitoring
package healthcheck

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics provides Prometheus metrics for health checks
type HealthMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	checkStatus   *prometheus.GaugeVec
}

// NewHealthMetrics registers the health check metrics on reg
func NewHealthMetrics(reg prometheus.Registerer) *HealthMetrics {
	factory := promauto.With(reg)
	return &HealthMetrics{
		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pantrypilot",
				Subsystem: "healthcheck",
				Name:      "checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"check_name", "status"},
		),
		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pantrypilot",
				Subsystem: "healthcheck",
				Name:      "check_duration_seconds",
				Help:      "Duration of health checks",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"check_name"},
		),
		checkStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pantrypilot",
				Subsystem: "healthcheck",
				Name:      "status",
				Help:      "Latest check status (1 healthy, 0.5 degraded, 0 unhealthy)",
			},
			[]string{"check_name"},
		),
	}
}

// RecordCheck records one check result
func (hm *HealthMetrics) RecordCheck(checkName string, status Status, duration time.Duration) {
	hm.checksTotal.WithLabelValues(checkName, string(status)).Inc()
	hm.checkDuration.WithLabelValues(checkName).Observe(duration.Seconds())
	hm.checkStatus.WithLabelValues(checkName).Set(statusToFloat(status))
}

func statusToFloat(status Status) float64 {
	switch status {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 0.5
	}
	return 0
}

type metricsChecker struct {
	name    string
	metrics *HealthMetrics
	next    Checker
}

func (m *metricsChecker) Check(ctx context.Context) Check {
	check := m.next.Check(ctx)
	m.metrics.RecordCheck(m.name, check.Status, check.Duration)
	return check
}

// WithMetrics wraps checker so every run is recorded under name
func WithMetrics(metrics *HealthMetrics, name string, checker Checker) Checker {
	if metrics == nil {
		return checker
	}
	return &metricsChecker{name: name, metrics: metrics, next: checker}
}
