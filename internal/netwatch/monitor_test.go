package netwatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimanidev/dukapos-backend/pkg/config"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error {
	return p.err
}

func newTestMonitor(t *testing.T, pinger Pinger) *Monitor {
	t.Helper()

	logg := logger.New(logger.Options{Level: logger.ParseLevel("error")})

	monitor, err := NewMonitor(MonitorParams{
		Config: config.NetworkConfig{},
		Logger: logg,
		Pinger: pinger,
	})
	require.NoError(t, err)
	return monitor
}

func TestNewMonitorValidatesParams(t *testing.T) {
	logg := logger.New(logger.Options{Level: logger.ParseLevel("error")})

	_, err := NewMonitor(MonitorParams{Logger: logg})
	require.Error(t, err)

	_, err = NewMonitor(MonitorParams{Pinger: &stubPinger{}})
	require.Error(t, err)
}

func TestProbeTracksReachability(t *testing.T) {
	pinger := &stubPinger{}
	monitor := newTestMonitor(t, pinger)
	ctx := context.Background()

	assert.False(t, monitor.IsOnline(), "monitor starts offline until probed")

	assert.True(t, monitor.Probe(ctx))
	assert.True(t, monitor.IsOnline())

	pinger.err = errors.New("dial tcp: connection refused")
	assert.False(t, monitor.Probe(ctx))
	assert.False(t, monitor.IsOnline())
}

func TestSubscribeFiresOnTransitionsOnly(t *testing.T) {
	pinger := &stubPinger{err: errors.New("down")}
	monitor := newTestMonitor(t, pinger)
	ctx := context.Background()

	var transitions []bool
	unsubscribe := monitor.Subscribe(func(online bool) {
		transitions = append(transitions, online)
	})

	monitor.Probe(ctx) // offline -> offline: no event
	assert.Empty(t, transitions)

	pinger.err = nil
	monitor.Probe(ctx) // offline -> online
	monitor.Probe(ctx) // steady online: no event
	require.Equal(t, []bool{true}, transitions)

	pinger.err = errors.New("down again")
	monitor.Probe(ctx) // online -> offline
	require.Equal(t, []bool{true, false}, transitions)

	unsubscribe()
	pinger.err = nil
	monitor.Probe(ctx)
	assert.Equal(t, []bool{true, false}, transitions, "unsubscribed listener stays quiet")
}
