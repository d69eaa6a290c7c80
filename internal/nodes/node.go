// Package nodes tracks the fleet of game-execution nodes and their health.
package nodes

import "time"

// State is a node's position in the health state machine.
type State string

const (
	// StateHealthy means the node has spoken within the timeout window.
	StateHealthy State = "healthy"
	// StatePingSent means the node went quiet and a ping is outstanding.
	StatePingSent State = "pingsent"
	// StateDisconnected means the ping went unanswered past the timeout.
	StateDisconnected State = "disconnected"
)

// Node is one game-execution node as seen by the lobby.
type Node struct {
	Name     string
	URL      string
	Version  string
	Capacity int // 0 = unbounded
	Load     int

	State      State
	LastSeen   time.Time
	PingSentAt time.Time
}

// Available reports whether the node can take another table.
func (n *Node) Available() bool {
	if n.State == StateDisconnected {
		return false
	}
	return n.Capacity == 0 || n.Load < n.Capacity
}
