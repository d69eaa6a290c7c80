package lobby

import (
	"context"
	"log"

	"github.com/google/uuid"

	"thronehall/internal/bus"
	"thronehall/internal/telemetry"
)

// RegisterBusHandlers wires the node-originated message kinds into the
// dispatcher. Any inbound traffic from a known node counts as a liveness
// signal.
func (s *Service) RegisterBusHandlers(d *bus.Dispatcher) {
	d.Handle(bus.KindHello, s.handleHello)
	d.Handle(bus.KindPong, s.handlePong)
	d.Handle(bus.KindGameWon, s.handleGameWon)
	d.Handle(bus.KindGameClosed, s.handleGameClosed)
}

// AnnounceLobby broadcasts a restart announcement so nodes re-announce
// themselves and the node registry can be rebuilt.
func (s *Service) AnnounceLobby(ctx context.Context) {
	msg := bus.LobbyHelloMessage{Name: s.lobbyName}
	if err := s.bus.Publish(ctx, bus.TargetAllNodes, bus.KindLobbyHello, msg); err != nil {
		log.Printf("lobby: announce: %v", err)
	}
}

func (s *Service) handleHello(ctx context.Context, env bus.Envelope) error {
	var msg bus.HelloMessage
	if err := env.DecodePayload(&msg); err != nil {
		return err
	}
	s.nodes.Announce(msg.Name, msg.URL, msg.Version, msg.Capacity)
	log.Printf("lobby: node %s announced (%s, capacity %d)", msg.Name, msg.URL, msg.Capacity)
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeNodeAnnounced, NodeName: msg.Name})
	return nil
}

func (s *Service) handlePong(_ context.Context, env bus.Envelope) error {
	var msg bus.PongMessage
	if err := env.DecodePayload(&msg); err != nil {
		return err
	}
	name := msg.Name
	if name == "" {
		name = env.Source
	}
	s.nodes.Pong(name)
	return nil
}

// handleGameWon records the winner on the game record. The table stays in
// the registry until the node closes it.
func (s *Service) handleGameWon(ctx context.Context, env bus.Envelope) error {
	var msg bus.GameWonMessage
	if err := env.DecodePayload(&msg); err != nil {
		return err
	}
	s.nodes.Touch(env.Source)

	rec, err := s.games.GetGameByTableID(ctx, msg.TableID)
	if err != nil {
		return err
	}
	if rec == nil {
		log.Printf("lobby: game won for unknown table %s", msg.TableID)
		return nil
	}
	rec.Winner = msg.Winner
	rec.WinReason = msg.Reason
	if err := s.games.UpdateGame(ctx, rec); err != nil {
		return err
	}
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeGameWon, TableID: msg.TableID, NodeName: env.Source})
	return nil
}

// handleGameClosed removes the table and releases the node slot.
func (s *Service) handleGameClosed(ctx context.Context, env bus.Envelope) error {
	var msg bus.GameClosedMessage
	if err := env.DecodePayload(&msg); err != nil {
		return err
	}
	s.nodes.Touch(env.Source)

	tableID, err := uuid.Parse(msg.TableID)
	if err != nil {
		log.Printf("lobby: game closed with bad table id %q", msg.TableID)
		return nil
	}

	s.mu.Lock()
	t, ok := s.tables[tableID]
	var view any
	if ok {
		delete(s.tables, tableID)
		t.Mu.Lock()
		for _, seat := range t.Seats {
			if s.tablesByUser[seat.User.Username] == tableID {
				delete(s.tablesByUser, seat.User.Username)
			}
		}
		view = t.View()
		t.Mu.Unlock()
		s.nodes.Release(t.NodeName)
	}
	audience := s.audienceLocked(nil)
	s.mu.Unlock()

	if ok {
		s.broadcast(audience, EventRemoveTable, view)
	}

	if rec, err := s.games.GetGameByTableID(ctx, msg.TableID); err == nil && rec != nil && rec.FinishedAt == nil {
		now := s.nowF()
		rec.FinishedAt = &now
		if err := s.games.UpdateGame(ctx, rec); err != nil {
			log.Printf("lobby: close game record for table %s: %v", msg.TableID, err)
		}
	}
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeGameClosed, TableID: msg.TableID, NodeName: env.Source})
	return nil
}
