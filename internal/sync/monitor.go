package sync

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	gosync "sync"
	"sync/atomic"
	"time"
)

// DefaultProbeInterval is how often Monitor checks reachability.
const DefaultProbeInterval = 30 * time.Second

// Monitor tracks whether the webhook host is reachable by dialing it, and
// fires callbacks on every offline to online transition.
type Monitor struct {
	target   func() string
	interval time.Duration
	timeout  time.Duration
	dial     func(ctx context.Context, network, address string) (net.Conn, error)
	logger   *slog.Logger

	online atomic.Bool

	mu       gosync.Mutex
	onOnline []func()
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithProbeInterval sets how often Run probes.
func WithProbeInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithDialer replaces the network dialer.
func WithDialer(dial func(ctx context.Context, network, address string) (net.Conn, error)) MonitorOption {
	return func(m *Monitor) { m.dial = dial }
}

// WithMonitorLogger sets the logger.
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor creates a Monitor for the endpoint URL returned by target.
// It starts out online.
func NewMonitor(target func() string, opts ...MonitorOption) *Monitor {
	var d net.Dialer
	m := &Monitor{
		target:   target,
		interval: DefaultProbeInterval,
		timeout:  5 * time.Second,
		dial:     d.DialContext,
		logger:   slog.Default(),
	}
	m.online.Store(true)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Online reports the last known state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnOnline registers fn to run on each offline to online transition.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// Probe dials the endpoint host once and records the result. With no
// endpoint configured there is nothing to reach, which counts as offline.
func (m *Monitor) Probe(ctx context.Context) bool {
	up := false
	if addr := hostPort(m.target()); addr != "" {
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		conn, err := m.dial(ctx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			up = true
		} else {
			m.logger.Debug("connectivity probe failed", "addr", addr, "error", err)
		}
	}

	was := m.online.Swap(up)
	switch {
	case up && !was:
		m.logger.Info("connection restored")
		m.mu.Lock()
		callbacks := make([]func(), len(m.onOnline))
		copy(callbacks, m.onOnline)
		m.mu.Unlock()
		for _, fn := range callbacks {
			fn()
		}
	case !up && was:
		m.logger.Warn("connection lost; submissions will stay pending")
	}
	return up
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// hostPort extracts the dial address from an endpoint URL.
func hostPort(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}
