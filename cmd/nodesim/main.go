// Nodesim is a stand-in game-execution node for local development: it
// announces itself on the control bus, answers health pings, accepts
// dispatched tables, and reports a winner after a short simulated game.
// Set NODE_NAME, NODE_URL, NODE_CAPACITY, KAFKA_BROKERS, CONTROL_KAFKA_TOPIC.
package main

import (
	"context"
	"log"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"thronehall/internal/bus"
	"thronehall/internal/config"
)

// gameDuration is how long a simulated game runs before a winner is reported.
const gameDuration = 30 * time.Second

type simulator struct {
	mu    sync.Mutex
	games map[string]bus.StartGameMessage
	pub   bus.Publisher
	cfg   *config.Config
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("nodesim: KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, err := bus.NewKafkaPublisher(brokers, cfg.ControlKafkaTopic, cfg.NodeName)
	if err != nil || pub == nil {
		log.Fatalf("nodesim: control publisher: %v", err)
	}
	defer pub.Close()

	sim := &simulator{
		games: make(map[string]bus.StartGameMessage),
		pub:   pub,
		cfg:   cfg,
	}

	d := bus.NewDispatcher(cfg.NodeName, bus.TargetAllNodes)
	d.Handle(bus.KindLobbyHello, sim.handleLobbyHello)
	d.Handle(bus.KindPing, sim.handlePing)
	d.Handle(bus.KindStartGame, sim.handleStartGame)

	groupID := "nodesim-" + cfg.NodeName
	consumer := bus.NewConsumer(brokers, cfg.ControlKafkaTopic, groupID, d)
	defer consumer.Close()

	sim.announce(ctx)
	log.Printf("nodesim: %s listening on the control bus", cfg.NodeName)
	consumer.Run(ctx)
	log.Println("nodesim: stopped")
}

// announce sends HELLO so the lobby registers this node.
func (s *simulator) announce(ctx context.Context) {
	msg := bus.HelloMessage{
		Name:     s.cfg.NodeName,
		URL:      s.cfg.NodeURL,
		Version:  s.cfg.NodeVersion,
		Capacity: s.cfg.NodeCapacity,
	}
	if err := s.pub.Publish(ctx, bus.TargetLobby, bus.KindHello, msg); err != nil {
		log.Printf("nodesim: announce: %v", err)
	}
}

// handleLobbyHello re-announces after a lobby restart.
func (s *simulator) handleLobbyHello(ctx context.Context, _ bus.Envelope) error {
	s.announce(ctx)
	return nil
}

func (s *simulator) handlePing(ctx context.Context, _ bus.Envelope) error {
	return s.pub.Publish(ctx, bus.TargetLobby, bus.KindPong, bus.PongMessage{Name: s.cfg.NodeName})
}

// handleStartGame accepts a dispatched table and schedules its outcome.
func (s *simulator) handleStartGame(ctx context.Context, env bus.Envelope) error {
	var msg bus.StartGameMessage
	if err := env.DecodePayload(&msg); err != nil {
		return err
	}
	s.mu.Lock()
	s.games[msg.TableID] = msg
	s.mu.Unlock()
	log.Printf("nodesim: game %s started with %d seats", msg.TableID, len(msg.Seats))

	go s.finishLater(ctx, msg)
	return nil
}

// finishLater reports a winner and closes the game after the simulated
// duration.
func (s *simulator) finishLater(ctx context.Context, msg bus.StartGameMessage) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(gameDuration):
	}

	var players []string
	for _, seat := range msg.Seats {
		if !seat.Spectator {
			players = append(players, seat.Username)
		}
	}
	if len(players) > 0 {
		won := bus.GameWonMessage{
			TableID: msg.TableID,
			Winner:  players[rand.Intn(len(players))],
			Reason:  "power",
		}
		if err := s.pub.Publish(ctx, bus.TargetLobby, bus.KindGameWon, won); err != nil {
			log.Printf("nodesim: game won: %v", err)
		}
	}
	if err := s.pub.Publish(ctx, bus.TargetLobby, bus.KindGameClosed, bus.GameClosedMessage{TableID: msg.TableID}); err != nil {
		log.Printf("nodesim: game closed: %v", err)
	}

	s.mu.Lock()
	delete(s.games, msg.TableID)
	s.mu.Unlock()
	log.Printf("nodesim: game %s finished", msg.TableID)
}
