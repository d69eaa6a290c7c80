// Package repository defines the narrow interface the lobby uses to read the
// deck/card catalog service.
package repository

import (
	"context"

	"thronehall/internal/catalog/domain"
)

// Repository is the catalog collaborator. Read-only from the lobby's side;
// deck CRUD lives in the catalog service itself.
type Repository interface {
	// GetDeckByID returns the deck with its full card list, or nil if no such
	// deck exists. Errors only on service failure.
	GetDeckByID(ctx context.Context, id string) (*domain.Deck, error)
	// GetAllPacks returns every known pack with its release date.
	GetAllPacks(ctx context.Context) ([]*domain.Pack, error)
	// GetRestrictedLists returns the known restricted lists in display order;
	// the first is the default for new tables.
	GetRestrictedLists(ctx context.Context) ([]*domain.RestrictedList, error)
}
