package nodes

import (
	"errors"
	"testing"
	"time"
)

var baseTime = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func testManager(timeout time.Duration) (*Manager, *time.Time) {
	now := baseTime
	m := NewManager(timeout)
	m.nowF = func() time.Time { return now }
	return m, &now
}

func TestAnnounceAndReconnect(t *testing.T) {
	m, _ := testManager(time.Minute)
	n := m.Announce("node1", "wss://node1", "1.0.0", 10)
	if n.State != StateHealthy {
		t.Fatalf("state = %s, want healthy", n.State)
	}

	// Dispatch two games, then reconnect with new settings.
	if _, err := m.SelectNode(); err != nil {
		t.Fatalf("SelectNode: %v", err)
	}
	if _, err := m.SelectNode(); err != nil {
		t.Fatalf("SelectNode: %v", err)
	}
	n = m.Announce("node1", "wss://node1-new", "1.1.0", 20)
	if n.Load != 2 {
		t.Errorf("load after reconnect = %d, want 2 (running games survive)", n.Load)
	}
	if n.URL != "wss://node1-new" || n.Capacity != 20 {
		t.Errorf("reconnect did not refresh settings: %+v", n)
	}
}

func TestSelectNodePrefersLeastLoad(t *testing.T) {
	m, _ := testManager(time.Minute)
	m.Announce("busy", "wss://busy", "1.0.0", 0)
	m.Announce("idle", "wss://idle", "1.0.0", 0)
	m.nodes["busy"].Load = 5
	m.nodes["idle"].Load = 2

	n, err := m.SelectNode()
	if err != nil {
		t.Fatalf("SelectNode: %v", err)
	}
	if n.Name != "idle" {
		t.Errorf("selected %s, want idle", n.Name)
	}
	if n.Load != 3 {
		t.Errorf("load = %d, want 3 after selection", n.Load)
	}
}

func TestSelectNodeSkipsFullAndDisconnected(t *testing.T) {
	m, _ := testManager(time.Minute)
	m.Announce("small", "wss://small", "1.0.0", 2)
	m.Announce("big", "wss://big", "1.0.0", 0)
	m.nodes["small"].Load = 2
	m.nodes["big"].Load = 5

	n, err := m.SelectNode()
	if err != nil {
		t.Fatalf("SelectNode: %v", err)
	}
	if n.Name != "big" {
		t.Errorf("selected %s, want big (small is at capacity)", n.Name)
	}

	m.nodes["big"].State = StateDisconnected
	if _, err := m.SelectNode(); !errors.Is(err, ErrNoNode) {
		t.Errorf("err = %v, want ErrNoNode", err)
	}
}

func TestReleaseDecrementsLoad(t *testing.T) {
	m, _ := testManager(time.Minute)
	m.Announce("node1", "wss://node1", "1.0.0", 0)
	if _, err := m.SelectNode(); err != nil {
		t.Fatalf("SelectNode: %v", err)
	}
	m.Release("node1")
	m.Release("node1") // below zero is clamped
	m.Release("ghost") // unknown name is a no-op
	if got := m.Get("node1").Load; got != 0 {
		t.Errorf("load = %d, want 0", got)
	}
}

func TestSweepStateMachine(t *testing.T) {
	m, now := testManager(time.Minute)
	m.Announce("node1", "wss://node1", "1.0.0", 0)

	// Within the window nothing happens.
	toPing, disconnected := m.Sweep(now.Add(30 * time.Second))
	if len(toPing) != 0 || len(disconnected) != 0 {
		t.Fatalf("sweep inside window: toPing=%d disconnected=%d", len(toPing), len(disconnected))
	}

	// Past the window the node gets a ping.
	toPing, disconnected = m.Sweep(now.Add(61 * time.Second))
	if len(toPing) != 1 || toPing[0].Name != "node1" {
		t.Fatalf("toPing = %v, want node1", toPing)
	}
	if len(disconnected) != 0 {
		t.Fatalf("disconnected = %v, want none", disconnected)
	}
	if m.Get("node1").State != StatePingSent {
		t.Errorf("state = %s, want pingsent", m.Get("node1").State)
	}

	// Ping unanswered past the window disconnects the node.
	toPing, disconnected = m.Sweep(now.Add(125 * time.Second))
	if len(toPing) != 0 {
		t.Fatalf("toPing = %v, want none", toPing)
	}
	if len(disconnected) != 1 || disconnected[0].Name != "node1" {
		t.Fatalf("disconnected = %v, want node1", disconnected)
	}
}

func TestPongResetsPingSent(t *testing.T) {
	m, now := testManager(time.Minute)
	m.Announce("node1", "wss://node1", "1.0.0", 0)
	m.Sweep(now.Add(61 * time.Second))
	if m.Get("node1").State != StatePingSent {
		t.Fatal("expected pingsent before pong")
	}

	*now = now.Add(65 * time.Second)
	m.Pong("node1")
	n := m.Get("node1")
	if n.State != StateHealthy {
		t.Errorf("state = %s, want healthy after pong", n.State)
	}
	if !n.PingSentAt.IsZero() {
		t.Error("pingSentAt not cleared after pong")
	}

	// Healthy again means no further transitions inside the new window.
	_, disconnected := m.Sweep(now.Add(30 * time.Second))
	if len(disconnected) != 0 {
		t.Errorf("disconnected = %v, want none", disconnected)
	}
}

func TestTouchUnknownNodeIgnored(t *testing.T) {
	m, _ := testManager(time.Minute)
	m.Touch("ghost")
	if len(m.All()) != 0 {
		t.Error("touch of unknown name created a node")
	}
}
