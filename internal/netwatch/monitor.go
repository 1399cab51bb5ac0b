package netwatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kimanidev/dukapos-backend/pkg/config"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 2 * time.Second
)

// Pinger is the reachability probe. The ledger database client satisfies it,
// so "online" means the ledger itself answers, not merely that a NIC is up.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Listener receives connectivity transitions. It is invoked outside the
// monitor's lock and must not block for long.
type Listener func(online bool)

type MonitorParams struct {
	Config config.NetworkConfig
	Logger *logger.Logger
	Pinger Pinger
}

// Monitor polls the ledger and tracks a single boolean: reachable or not.
// State reads are lock-free; subscriptions fire only on transitions.
type Monitor struct {
	logg          *logger.Logger
	pinger        Pinger
	probeInterval time.Duration
	probeTimeout  time.Duration

	online atomic.Bool

	mu          sync.Mutex
	subscribers map[int]Listener
	nextSubID   int
}

func NewMonitor(params MonitorParams) (*Monitor, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Pinger == nil {
		return nil, errors.New("pinger is required")
	}

	interval := params.Config.ProbeInterval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	timeout := params.Config.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	return &Monitor{
		logg:          params.Logger,
		pinger:        params.Pinger,
		probeInterval: interval,
		probeTimeout:  timeout,
		subscribers:   map[int]Listener{},
	}, nil
}

// IsOnline reports the last observed connectivity state.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// Subscribe registers a transition listener and returns its unsubscribe
// function. Listeners see every online<->offline flip, not the steady state.
func (m *Monitor) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Probe runs one reachability check immediately and returns the resulting
// state. Transitions notify subscribers same as the poll loop.
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	online := m.pinger.Ping(probeCtx) == nil
	m.setOnline(ctx, online)
	return online
}

// Run polls until the context is canceled. The first probe happens
// immediately so startup state is accurate before the first tick.
func (m *Monitor) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.Probe(ctx)

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logg.Info(ctx, "network monitor context canceled")
			return ctx.Err()
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

func (m *Monitor) setOnline(ctx context.Context, online bool) {
	previous := m.online.Swap(online)
	if previous == online {
		return
	}

	if online {
		m.logg.Info(ctx, "ledger connection restored")
	} else {
		m.logg.Warn(ctx, "ledger unreachable, entering offline mode")
	}

	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
}
