// Package repository defines the narrow interface the lobby uses to persist
// game records.
package repository

import (
	"context"

	"thronehall/internal/gamerecord/domain"
)

// Repository is the game-record collaborator. CreateGame is called once at
// table start; UpdateGame once per win/close notification from the node.
type Repository interface {
	CreateGame(ctx context.Context, g *domain.GameRecord) error
	UpdateGame(ctx context.Context, g *domain.GameRecord) error
	// GetGameByTableID returns the most recent record for the table, or nil
	// if none exists. Used to resolve win/close notifications.
	GetGameByTableID(ctx context.Context, tableID string) (*domain.GameRecord, error)
}
