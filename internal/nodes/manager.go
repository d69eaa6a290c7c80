package nodes

import (
	"errors"
	"sync"
	"time"
)

// ErrNoNode is returned by SelectNode when every node is disconnected or at
// capacity.
var ErrNoNode = errors.New("nodes: no node available")

// Manager is the in-memory node registry. All methods are safe for concurrent
// use.
type Manager struct {
	mu      sync.RWMutex
	nodes   map[string]*Node
	timeout time.Duration
	nowF    func() time.Time
}

// NewManager creates a registry that marks nodes unhealthy after timeout of
// silence.
func NewManager(timeout time.Duration) *Manager {
	return NewManagerWithClock(timeout, time.Now)
}

// NewManagerWithClock is NewManager with an injected clock, for tests and
// simulations.
func NewManagerWithClock(timeout time.Duration, now func() time.Time) *Manager {
	return &Manager{
		nodes:   make(map[string]*Node),
		timeout: timeout,
		nowF:    now,
	}
}

// Announce registers a node or reconnects a known one. A reconnect refreshes
// URL, version and capacity but keeps the current load, since games already
// dispatched to the node are still running there.
func (m *Manager) Announce(name, url, version string, capacity int) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[name]
	if !ok {
		n = &Node{Name: name}
		m.nodes[name] = n
	}
	n.URL = url
	n.Version = version
	n.Capacity = capacity
	n.State = StateHealthy
	n.LastSeen = m.nowF()
	n.PingSentAt = time.Time{}
	return n
}

// Touch records inbound traffic from a node, resetting it to healthy.
// Unknown names are ignored; the node will announce itself when it sees the
// lobby's restart broadcast.
func (m *Manager) Touch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[name]
	if !ok {
		return
	}
	n.State = StateHealthy
	n.LastSeen = m.nowF()
	n.PingSentAt = time.Time{}
}

// Pong clears the outstanding ping for a node.
func (m *Manager) Pong(name string) {
	m.Touch(name)
}

// SelectNode picks the available node with the least load and increments its
// load. Ties break by map iteration order.
func (m *Manager) SelectNode() (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *Node
	for _, n := range m.nodes {
		if !n.Available() {
			continue
		}
		if best == nil || n.Load < best.Load {
			best = n
		}
	}
	if best == nil {
		return nil, ErrNoNode
	}
	best.Load++
	snap := *best
	return &snap, nil
}

// Release decrements a node's load after its game ends.
func (m *Manager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[name]
	if ok && n.Load > 0 {
		n.Load--
	}
}

// Get returns a snapshot of the named node, or nil if unknown.
func (m *Manager) Get(name string) *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[name]
	if !ok {
		return nil
	}
	snap := *n
	return &snap
}

// All returns a snapshot of every registered node.
func (m *Manager) All() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		snap := *n
		out = append(out, &snap)
	}
	return out
}

// Sweep applies the health state machine at the given instant. Healthy nodes
// silent past the timeout move to ping-sent and are returned in toPing so the
// caller can publish pings; ping-sent nodes whose ping has been outstanding
// past the timeout move to disconnected and are returned in disconnected so
// the caller can tear down their tables.
func (m *Manager) Sweep(now time.Time) (toPing, disconnected []*Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		switch n.State {
		case StateHealthy:
			if now.Sub(n.LastSeen) > m.timeout {
				n.State = StatePingSent
				n.PingSentAt = now
				snap := *n
				toPing = append(toPing, &snap)
			}
		case StatePingSent:
			if now.Sub(n.PingSentAt) > m.timeout {
				n.State = StateDisconnected
				snap := *n
				disconnected = append(disconnected, &snap)
			}
		}
	}
	return toPing, disconnected
}
