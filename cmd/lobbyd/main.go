// Lobbyd is the lobby control plane: websocket sessions, the table registry,
// deck legality checks, and dispatch of ready tables to game nodes.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	accountrepo "thronehall/internal/account/repository"
	"thronehall/internal/bus"
	catalogrepo "thronehall/internal/catalog/repository"
	"thronehall/internal/config"
	"thronehall/internal/db"
	gamerepo "thronehall/internal/gamerecord/repository"
	"thronehall/internal/lobby"
	"thronehall/internal/nodes"
	"thronehall/internal/rules"
	"thronehall/internal/security"
	"thronehall/internal/server"
	"thronehall/internal/telemetry"
	telemetryotel "thronehall/internal/telemetry/otel"
	"thronehall/internal/telemetry/producer"
	"thronehall/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("lobbyd: DATABASE_URL is required")
	}
	if cfg.JWTPublicKey == "" {
		log.Fatal("lobbyd: JWT_PUBLIC_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("lobbyd: parse JWT public key: %v", err)
	}
	verifier := security.NewTokenVerifier(publicKey, cfg.JWTIssuer, cfg.JWTAudience)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("lobbyd: open database: %v", err)
	}
	defer database.Close()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "thronehall-lobby", false)
	if err != nil {
		log.Fatalf("lobbyd: telemetry providers: %v", err)
	}
	providers.SetGlobal()

	brokers := cfg.KafkaBrokersList()
	kafkaEmitter, err := producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("lobbyd: telemetry producer: %v", err)
	}
	defer kafkaEmitter.Close()
	emitter := telemetry.MultiEmitter(
		telemetryotel.NewEventEmitter(providers.LoggerProvider),
		kafkaEmitter,
	)

	publisher, err := bus.NewKafkaPublisher(brokers, cfg.ControlKafkaTopic, cfg.LobbyName)
	if err != nil {
		log.Fatalf("lobbyd: control publisher: %v", err)
	}
	if publisher == nil {
		log.Fatal("lobbyd: KAFKA_BROKERS and CONTROL_KAFKA_TOPIC are required")
	}
	defer publisher.Close()

	nodeManager := nodes.NewManager(cfg.NodeTimeoutDuration())
	hub := ws.NewHub()
	svc := lobby.NewService(lobby.Deps{
		Accounts:        accountrepo.NewPostgresRepository(database),
		Catalog:         catalogrepo.NewPostgresRepository(database),
		Games:           gamerepo.NewPostgresRepository(database),
		Validator:       rules.NewStandardValidator(),
		Nodes:           nodeManager,
		Bus:             publisher,
		Notifier:        hub,
		Emitter:         emitter,
		Hasher:          security.NewHasher(cfg.BcryptCost),
		LobbyName:       cfg.LobbyName,
		ChatMinAge:      cfg.ChatMinAccountAgeDuration(),
		ChatMaxLen:      cfg.ChatMaxLength,
		TableStaleAfter: cfg.TableStaleAfterDuration(),
	})
	hub.Bind(svc)

	dispatcher := bus.NewDispatcher(cfg.LobbyName, bus.TargetLobby)
	svc.RegisterBusHandlers(dispatcher)
	consumer := bus.NewConsumer(brokers, cfg.ControlKafkaTopic, cfg.ControlKafkaGroupID, dispatcher)
	defer consumer.Close()
	go consumer.Run(ctx)

	svc.AnnounceLobby(ctx)
	go svc.RunSweeper(ctx, cfg.SweepIntervalDuration())

	mux := server.NewMux(server.Deps{
		WS:           ws.NewHandler(hub, verifier),
		HealthPinger: database,
	})

	log.Printf("lobbyd: %s listening on %s", cfg.LobbyName, cfg.HTTPAddr)
	if err := server.Run(ctx, cfg.HTTPAddr, mux, 15*time.Second); err != nil {
		log.Fatalf("lobbyd: serve: %v", err)
	}

	// Let in-flight async telemetry emits finish before the providers go.
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("lobbyd: telemetry shutdown: %v", err)
	}
	log.Println("lobbyd: stopped")
}
