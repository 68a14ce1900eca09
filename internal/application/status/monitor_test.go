package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/infrastructure/apiclient"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	"github.com/pantrypilot/web/pkg/healthcheck"
	"github.com/pantrypilot/web/test/testutils"
)

type flakyAPI struct {
	results []error
	calls   int
}

func (f *flakyAPI) Health(context.Context) error {
	err := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	return err
}

func TestPhaseLabels(t *testing.T) {
	assert.Equal(t, "Connecting…", Connecting.Label())
	assert.Equal(t, "System Online", Online.Label())
	assert.Equal(t, "Backend Offline", Offline.Label())
}

func TestMonitor_ProbeAgainstAPI(t *testing.T) {
	api := testutils.NewFakeAPI(t, 0)
	client := apiclient.New(&config.Config{API: config.APIConfig{BaseURL: api.URL()}}, zap.NewNop(), nil)
	m := NewMonitor(client, config.HealthConfig{Retries: 1}, monitoring.NewMetricsCollector(zap.NewNop()), zap.NewNop())

	assert.Equal(t, Connecting, m.Snapshot().Phase)

	assert.Equal(t, Online, m.Probe(context.Background()).Phase)
	assert.Equal(t, 1, api.CallCount("GET /health"))

	api.SetHealthy(false)
	snap := m.Probe(context.Background())
	assert.Equal(t, Offline, snap.Phase)
	assert.Error(t, snap.Err)
	assert.Equal(t, 3, api.CallCount("GET /health"), "one retry after a failure")
}

func TestMonitor_SingleRetryRecovers(t *testing.T) {
	api := &flakyAPI{results: []error{errors.New("blip"), nil}}
	m := NewMonitor(api, config.HealthConfig{Retries: 1}, nil, zap.NewNop())

	assert.Equal(t, Online, m.Probe(context.Background()).Phase)
	assert.Equal(t, 2, api.calls)
}

func TestMonitor_Checker(t *testing.T) {
	api := &flakyAPI{results: []error{errors.New("down")}}
	m := NewMonitor(api, config.HealthConfig{}, nil, zap.NewNop())
	checker := m.Checker()

	assert.Equal(t, healthcheck.StatusDegraded, checker.Check(context.Background()).Status)

	m.Probe(context.Background())
	check := checker.Check(context.Background())
	assert.Equal(t, healthcheck.StatusUnhealthy, check.Status)
	assert.Equal(t, "down", check.Message)

	api.results = []error{nil}
	m.Probe(context.Background())
	assert.Equal(t, healthcheck.StatusHealthy, checker.Check(context.Background()).Status)
}

func TestMonitor_RunStopsWithContext(t *testing.T) {
	api := &flakyAPI{results: []error{nil}}
	m := NewMonitor(api, config.HealthConfig{PollInterval: time.Millisecond}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Snapshot().Phase == Online }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
