// Package status polls the recipe API liveness endpoint and exposes the
// last result to the page header and the readiness check
package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	"github.com/pantrypilot/web/internal/ports/outbound"
	"github.com/pantrypilot/web/pkg/healthcheck"
)

// Phase is the backend connection state
type Phase string

const (
	Connecting Phase = "connecting"
	Online     Phase = "online"
	Offline    Phase = "offline"
)

// Label returns the header text of the phase
func (p Phase) Label() string {
	switch p {
	case Online:
		return "System Online"
	case Offline:
		return "Backend Offline"
	}
	return "Connecting…"
}

// Snapshot is the latest probe outcome
type Snapshot struct {
	Phase     Phase
	CheckedAt time.Time
	Err       error
}

// Monitor probes the API on a fixed interval
type Monitor struct {
	api      outbound.HealthAPI
	interval time.Duration
	retries  int
	timeout  time.Duration
	metrics  *monitoring.MetricsCollector
	logger   *zap.Logger

	mu      sync.RWMutex
	current Snapshot
}

// NewMonitor creates a monitor in the Connecting phase. metrics may be nil.
func NewMonitor(api outbound.HealthAPI, cfg config.HealthConfig, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Monitor {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		api:      api,
		interval: interval,
		retries:  cfg.Retries,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger.Named("backend-status"),
		current:  Snapshot{Phase: Connecting},
	}
}

// Snapshot returns the latest probe outcome
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Probe checks the API once, retrying up to the configured number of times,
// and stores the outcome
func (m *Monitor) Probe(ctx context.Context) Snapshot {
	var err error
	for attempt := 0; attempt <= m.retries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err = m.api.Health(probeCtx)
		cancel()
		if err == nil || ctx.Err() != nil {
			break
		}
	}

	snap := Snapshot{Phase: Online, CheckedAt: time.Now(), Err: err}
	if err != nil {
		snap.Phase = Offline
	}

	m.mu.Lock()
	previous := m.current.Phase
	m.current = snap
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetBackendUp(err == nil)
	}
	if previous != snap.Phase {
		m.logger.Info("Backend status changed",
			zap.String("from", string(previous)),
			zap.String("to", string(snap.Phase)),
			zap.Error(err),
		)
	}
	return snap
}

// Run probes immediately and then on every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Checker reports the last probe as a health check. Connecting counts as
// degraded so a fresh process is not reported unhealthy.
func (m *Monitor) Checker() healthcheck.Checker {
	return healthcheck.NewCustomChecker("recipe-api", func(context.Context) (healthcheck.Status, string, interface{}) {
		snap := m.Snapshot()
		meta := map[string]interface{}{"phase": string(snap.Phase)}
		switch snap.Phase {
		case Online:
			return healthcheck.StatusHealthy, "", meta
		case Offline:
			msg := "recipe API unreachable"
			if snap.Err != nil {
				msg = snap.Err.Error()
			}
			return healthcheck.StatusUnhealthy, msg, meta
		}
		return healthcheck.StatusDegraded, "waiting for first probe", meta
	})
}
