// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the lobby HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the account/catalog/game-record collaborators.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPublicKey is the PEM-encoded public key (RSA or ECDSA) used to validate access tokens.
	// The lobby never issues tokens; issuing lives in the identity service.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the expected iss claim (e.g. "throne-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim (e.g. "throne-lobby").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	// LobbyName identifies this lobby instance as a bus target (envelopes addressed elsewhere are skipped).
	LobbyName string `mapstructure:"LOBBY_NAME"`
	// NodeTimeout is how long a node may stay silent before it is pinged, and how long a
	// ping may stay unanswered before the node is marked disconnected (e.g. "1m").
	NodeTimeout string `mapstructure:"NODE_TIMEOUT"`
	// TableStaleAfter is how long a pending (never started) table may exist before the sweep removes it (e.g. "10m").
	TableStaleAfter string `mapstructure:"TABLE_STALE_AFTER"`
	// SweepInterval is the period of the node-health and stale-table sweeps (e.g. "30s").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// ChatMinAccountAge is the minimum account age before a user may chat (e.g. "72h").
	ChatMinAccountAge string `mapstructure:"CHAT_MIN_ACCOUNT_AGE"`
	// ChatMaxLength is the maximum chat message length in runes; longer messages are truncated.
	ChatMaxLength int `mapstructure:"CHAT_MAX_LENGTH"`
	// BcryptCost is the bcrypt cost factor (4–31) for private-table passwords; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ControlKafkaTopic is the Kafka topic for the lobby↔node control bus (default throne-control).
	ControlKafkaTopic string `mapstructure:"CONTROL_KAFKA_TOPIC"`
	// ControlKafkaGroupID is the consumer group ID for the control bus. Each lobby/node process
	// needs its own group so every consumer sees every envelope; when unset, a per-process
	// default is derived from LOBBY_NAME plus a random suffix.
	ControlKafkaGroupID string `mapstructure:"CONTROL_KAFKA_GROUP_ID"`
	// TelemetryKafkaTopic is the Kafka topic for lobby telemetry events (default throne-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// OTLPEndpoint enables OTel traces/metrics export when set (e.g. "localhost:4317").
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// Nodesim-only: identity the simulated game node announces on the bus.
	NodeName string `mapstructure:"NODE_NAME"`
	// NodeURL is the address clients are handed off to (e.g. "wss://node1.example/game").
	NodeURL string `mapstructure:"NODE_URL"`
	// NodeCapacity is the max concurrent games the simulated node advertises; 0 = unbounded.
	NodeCapacity int `mapstructure:"NODE_CAPACITY"`
	// NodeVersion is the game-engine version the simulated node advertises.
	NodeVersion string `mapstructure:"NODE_VERSION"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "throne-auth")
	v.SetDefault("JWT_AUDIENCE", "throne-lobby")
	v.SetDefault("LOBBY_NAME", "lobby")
	v.SetDefault("NODE_TIMEOUT", "1m")
	v.SetDefault("TABLE_STALE_AFTER", "10m")
	v.SetDefault("SWEEP_INTERVAL", "30s")
	v.SetDefault("CHAT_MIN_ACCOUNT_AGE", "72h")
	v.SetDefault("CHAT_MAX_LENGTH", 512)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CONTROL_KAFKA_TOPIC", "throne-control")
	v.SetDefault("CONTROL_KAFKA_GROUP_ID", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "throne-telemetry")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "throne-telemetry-worker")
	v.SetDefault("NODE_NAME", "node1")
	v.SetDefault("NODE_URL", "ws://localhost:9090/game")
	v.SetDefault("NODE_CAPACITY", 0)
	v.SetDefault("NODE_VERSION", "dev")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.LobbyName == "" {
		return nil, errors.New("config: LOBBY_NAME must be set")
	}
	if cfg.ChatMaxLength <= 0 {
		return nil, errors.New("config: CHAT_MAX_LENGTH must be positive")
	}
	if cfg.NodeCapacity < 0 {
		return nil, errors.New("config: NODE_CAPACITY must not be negative")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	// A shared group would split the control stream between instances.
	if cfg.ControlKafkaGroupID == "" {
		cfg.ControlKafkaGroupID = cfg.LobbyName + "-" + uuid.NewString()[:8]
	}

	return &cfg, nil
}

// NodeTimeoutDuration parses NodeTimeout as a time.Duration. Returns 1m if unset or invalid.
func (c *Config) NodeTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.NodeTimeout)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// TableStaleAfterDuration parses TableStaleAfter as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) TableStaleAfterDuration() time.Duration {
	d, err := time.ParseDuration(c.TableStaleAfter)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// SweepIntervalDuration parses SweepInterval as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ChatMinAccountAgeDuration parses ChatMinAccountAge as a time.Duration. Returns 72h if unset or invalid.
func (c *Config) ChatMinAccountAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.ChatMinAccountAge)
	if err != nil || d <= 0 {
		return 72 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the bus and telemetry are enabled (non-empty list) and to create writers/readers.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
