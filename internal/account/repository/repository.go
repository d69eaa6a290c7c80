// Package repository defines the narrow interface the lobby uses to talk to
// the identity/account service.
package repository

import (
	"context"

	"thronehall/internal/account/domain"
)

// Repository is the account collaborator. The lobby treats it as external:
// failures are surfaced as generic errors to the caller and never retried here.
type Repository interface {
	// GetUserByUsername returns the user summary for the given username, or
	// nil if no such user exists. Errors only on service failure.
	GetUserByUsername(ctx context.Context, username string) (*domain.UserSummary, error)
	// AddLobbyMessage persists a chat message and returns it with id and
	// timestamp assigned.
	AddLobbyMessage(ctx context.Context, userID, text string) (*domain.PersistedMessage, error)
	// RemoveLobbyMessage marks a message removed, recording who removed it.
	RemoveLobbyMessage(ctx context.Context, messageID, removedByUserID string) error
	// GetLobbyMessagesForUser returns the recent lobby chat backlog for the
	// connecting user, oldest first, with each sender's block list attached.
	// Block-list filtering happens in the lobby.
	GetLobbyMessagesForUser(ctx context.Context, userID string) ([]*domain.PersistedMessage, error)
}
