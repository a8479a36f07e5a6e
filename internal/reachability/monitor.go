package reachability

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

const defaultInterval = 5 * time.Second

// Monitor tracks connectivity by running a Probe periodically and
// publishes status changes to subscribers.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	status Status
	subs   map[uint64]chan Status
	nextID uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Monitor
type Option func(*Monitor)

// WithInterval sets the probe interval
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = logging.OrNop(l)
	}
}

// New creates a monitor around probe. The status starts Unknown.
func New(probe Probe, opts ...Option) *Monitor {
	m := &Monitor{
		probe:    probe,
		interval: defaultInterval,
		logger:   zap.NewNop(),
		subs:     make(map[uint64]chan Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ForDomain creates a monitor that probes host over TCP. host may carry a
// port; port 443 is assumed otherwise. Internationalized names are
// converted to their ASCII form.
func ForDomain(host string, timeout time.Duration, opts ...Option) (*Monitor, error) {
	address, err := normalizeAddress(host)
	if err != nil {
		return nil, err
	}
	return New(&TCPProbe{Address: address, Timeout: timeout}, opts...), nil
}

// FromConfig creates a domain monitor from configuration
func FromConfig(cfg config.ReachabilityConfig, logger *zap.Logger) (*Monitor, error) {
	return ForDomain(cfg.Host, cfg.Timeout.Std(),
		WithInterval(cfg.Interval.Std()),
		WithLogger(logger),
	)
}

func normalizeAddress(host string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("reachability: host required")
	}
	name, port, err := net.SplitHostPort(host)
	if err != nil {
		name, port = host, "443"
	}
	if net.ParseIP(name) == nil {
		name, err = idna.Lookup.ToASCII(name)
		if err != nil {
			return "", fmt.Errorf("reachability: invalid host %q: %w", host, err)
		}
	}
	return net.JoinHostPort(name, port), nil
}

// Status returns the current status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsReachable reports whether the network is reachable over any interface
func (m *Monitor) IsReachable() bool {
	return m.Status().Reachable()
}

// IsReachableViaCellular reports whether the network is reachable over a
// mobile data link
func (m *Monitor) IsReachableViaCellular() bool {
	return m.Status() == StatusReachableViaCellular
}

// IsReachableViaWiFi reports whether the network is reachable over a
// non-cellular interface
func (m *Monitor) IsReachableViaWiFi() bool {
	return m.Status() == StatusReachableViaWiFi
}

// Subscribe returns a channel receiving status changes and a function
// that unsubscribes and closes it. A slow subscriber only misses
// intermediate values; the latest status is always delivered.
func (m *Monitor) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Check runs the probe once and records the result
func (m *Monitor) Check(ctx context.Context) Status {
	status := m.probe.Probe(ctx)
	if ctx.Err() != nil {
		return m.Status()
	}
	m.set(status)
	return status
}

// StartMonitoring probes immediately and then at every interval until
// StopMonitoring is called or ctx is done. Calling it while already
// running is a no-op.
func (m *Monitor) StartMonitoring(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, m.done)
}

// StopMonitoring stops the probe loop and waits for it to exit
func (m *Monitor) StopMonitoring() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.finishRun(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// finishRun forgets the loop identified by done so a loop ended by its
// context does not block the next StartMonitoring
func (m *Monitor) finishRun(done chan struct{}) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.done != done {
		return
	}
	m.cancel()
	m.cancel, m.done = nil, nil
}

func (m *Monitor) set(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == status {
		return
	}
	prev := m.status
	m.status = status
	m.logger.Debug("Reachability changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", status))

	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- status
	}
}
