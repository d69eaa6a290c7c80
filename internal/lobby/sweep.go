package lobby

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"thronehall/internal/bus"
	"thronehall/internal/lobby/domain"
	"thronehall/internal/telemetry"
)

// RunSweeper drives the node health state machine and the pending-table
// staleness sweep until ctx is canceled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one sweep tick: ping quiet nodes, tear down tables of nodes
// that never answered, and drop pending tables that went stale.
func (s *Service) SweepOnce(ctx context.Context) {
	now := s.nowF()

	toPing, disconnected := s.nodes.Sweep(now)
	for _, n := range toPing {
		if err := s.bus.Publish(ctx, n.Name, bus.KindPing, bus.PingMessage{}); err != nil {
			log.Printf("lobby: ping %s: %v", n.Name, err)
		}
	}
	for _, n := range disconnected {
		log.Printf("lobby: node %s disconnected", n.Name)
		s.removeNodeTables(n.Name)
		s.emit(ctx, &telemetry.Event{Type: telemetry.TypeNodeDisconnected, NodeName: n.Name})
	}

	s.removeStaleTables(now)
}

// removeNodeTables force-removes every table assigned to a vanished node and
// tells its members why.
func (s *Service) removeNodeTables(nodeName string) {
	s.mu.Lock()
	var removed []domain.TableView
	var memberConns []ConnID
	for id, t := range s.tables {
		t.Mu.Lock()
		if t.NodeName != nodeName {
			t.Mu.Unlock()
			continue
		}
		delete(s.tables, id)
		for _, seat := range t.Seats {
			if s.tablesByUser[seat.User.Username] == id {
				delete(s.tablesByUser, seat.User.Username)
			}
			for c := range s.connsByUser[seat.User.Username] {
				memberConns = append(memberConns, c)
			}
		}
		removed = append(removed, t.View())
		t.Mu.Unlock()
		// The node may reconnect later; its slot must not stay counted
		// against a game that no longer exists.
		s.nodes.Release(nodeName)
	}
	audience := s.audienceLocked(nil)
	s.mu.Unlock()

	for _, view := range removed {
		s.broadcast(audience, EventRemoveTable, view)
	}
	if len(removed) > 0 {
		s.broadcast(memberConns, EventGameError, "the game node went away, your game has been closed")
	}
}

// removeStaleTables drops pending tables older than the staleness window.
// Started tables are never swept; only their node can close them.
func (s *Service) removeStaleTables(now time.Time) {
	s.mu.Lock()
	var removed []domain.TableView
	for id, t := range s.tables {
		t.Mu.Lock()
		if t.Started || now.Sub(t.CreatedAt) <= s.staleAfter {
			t.Mu.Unlock()
			continue
		}
		delete(s.tables, id)
		for _, seat := range t.Seats {
			if s.tablesByUser[seat.User.Username] == id {
				delete(s.tablesByUser, seat.User.Username)
			}
		}
		removed = append(removed, t.View())
		t.Mu.Unlock()
	}
	audience := s.audienceLocked(nil)
	s.mu.Unlock()

	for _, view := range removed {
		s.broadcast(audience, EventRemoveTable, view)
	}
}

// TableCount reports how many tables the registry holds.
func (s *Service) TableCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}

// Table returns the table with the given id, or nil.
func (s *Service) Table(id uuid.UUID) *domain.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[id]
}
