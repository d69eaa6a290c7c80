package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "throne-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "throne-auth")
	}
	if cfg.JWTAudience != "throne-lobby" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "throne-lobby")
	}
	if cfg.LobbyName != "lobby" {
		t.Errorf("LobbyName = %q, want %q", cfg.LobbyName, "lobby")
	}
	if cfg.NodeTimeout != "1m" {
		t.Errorf("NodeTimeout = %q, want %q", cfg.NodeTimeout, "1m")
	}
	if cfg.TableStaleAfter != "10m" {
		t.Errorf("TableStaleAfter = %q, want %q", cfg.TableStaleAfter, "10m")
	}
	if cfg.ChatMaxLength != 512 {
		t.Errorf("ChatMaxLength = %d, want 512", cfg.ChatMaxLength)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.ControlKafkaTopic != "throne-control" {
		t.Errorf("ControlKafkaTopic = %q, want default", cfg.ControlKafkaTopic)
	}
	if cfg.TelemetryKafkaTopic != "throne-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
}

func TestLoad_ControlGroupIDUniquePerProcess(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("LOBBY_NAME", "lobby-eu-1")

	a, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.ControlKafkaGroupID == "" || a.ControlKafkaGroupID == b.ControlKafkaGroupID {
		t.Errorf("derived group ids %q and %q, want distinct non-empty", a.ControlKafkaGroupID, b.ControlKafkaGroupID)
	}
	if want := "lobby-eu-1-"; len(a.ControlKafkaGroupID) <= len(want) || a.ControlKafkaGroupID[:len(want)] != want {
		t.Errorf("group id = %q, want %q prefix", a.ControlKafkaGroupID, want)
	}

	os.Setenv("CONTROL_KAFKA_GROUP_ID", "pinned")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ControlKafkaGroupID != "pinned" {
		t.Errorf("ControlKafkaGroupID = %q, want explicit value kept", c.ControlKafkaGroupID)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("LOBBY_NAME", "lobby-eu-1")
	os.Setenv("CHAT_MAX_LENGTH", "256")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.LobbyName != "lobby-eu-1" {
		t.Errorf("LobbyName = %q, want %q", cfg.LobbyName, "lobby-eu-1")
	}
	if cfg.ChatMaxLength != 256 {
		t.Errorf("ChatMaxLength = %d, want 256", cfg.ChatMaxLength)
	}
}

func TestLoad_ChatMaxLengthMustBePositive(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("CHAT_MAX_LENGTH", "-1")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error for negative CHAT_MAX_LENGTH")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_NodeCapacityMustNotBeNegative(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("NODE_CAPACITY", "-2")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error for negative NODE_CAPACITY")
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // defaults to 12
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestDurationAccessors_Valid(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("NODE_TIMEOUT", "90s")
	os.Setenv("TABLE_STALE_AFTER", "5m")
	os.Setenv("SWEEP_INTERVAL", "10s")
	os.Setenv("CHAT_MIN_ACCOUNT_AGE", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.NodeTimeoutDuration(); got != 90*time.Second {
		t.Errorf("NodeTimeoutDuration = %v, want 90s", got)
	}
	if got := cfg.TableStaleAfterDuration(); got != 5*time.Minute {
		t.Errorf("TableStaleAfterDuration = %v, want 5m", got)
	}
	if got := cfg.SweepIntervalDuration(); got != 10*time.Second {
		t.Errorf("SweepIntervalDuration = %v, want 10s", got)
	}
	if got := cfg.ChatMinAccountAgeDuration(); got != 24*time.Hour {
		t.Errorf("ChatMinAccountAgeDuration = %v, want 24h", got)
	}
}

func TestDurationAccessors_InvalidFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("NODE_TIMEOUT", "invalid")
	os.Setenv("TABLE_STALE_AFTER", "-5m")
	os.Setenv("SWEEP_INTERVAL", "0")
	os.Setenv("CHAT_MIN_ACCOUNT_AGE", "nope")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.NodeTimeoutDuration(); got != time.Minute {
		t.Errorf("NodeTimeoutDuration = %v, want 1m (default)", got)
	}
	if got := cfg.TableStaleAfterDuration(); got != 10*time.Minute {
		t.Errorf("TableStaleAfterDuration = %v, want 10m (default)", got)
	}
	if got := cfg.SweepIntervalDuration(); got != 30*time.Second {
		t.Errorf("SweepIntervalDuration = %v, want 30s (default)", got)
	}
	if got := cfg.ChatMinAccountAgeDuration(); got != 72*time.Hour {
		t.Errorf("ChatMinAccountAgeDuration = %v, want 72h (default)", got)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 0},
		{"single", "localhost:9092", 1},
		{"multiple with spaces", "a:9092, b:9092 ,c:9092", 3},
		{"trailing comma", "a:9092,", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			if tc.value != "" {
				os.Setenv("KAFKA_BROKERS", tc.value)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.KafkaBrokersList(); len(got) != tc.want {
				t.Errorf("KafkaBrokersList = %v, want %d entries", got, tc.want)
			}
		})
	}
}
