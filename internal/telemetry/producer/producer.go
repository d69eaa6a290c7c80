// Package producer defines the interface for shipping telemetry events (e.g.
// to Kafka for the Loki worker).
package producer

import (
	"context"

	"thronehall/internal/telemetry"
)

// Producer ships telemetry events. Callers use it best-effort: log and ignore
// errors.
type Producer interface {
	// Emit sends a single telemetry event. Implementations may block briefly;
	// call from a goroutine if needed.
	Emit(ctx context.Context, event *telemetry.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already
	// closed.
	Close() error
}
