package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"thronehall/internal/catalog/domain"
)

// PostgresRepository implements Repository against the shared Postgres instance.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns a catalog repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetDeckByID returns the deck with its full card list, or nil if not found.
func (r *PostgresRepository) GetDeckByID(ctx context.Context, id string) (*domain.Deck, error) {
	var d domain.Deck
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, faction_code FROM decks WHERE id = $1`, id,
	).Scan(&d.ID, &d.UserID, &d.Name, &d.FactionCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.code, c.name, c.type_code, c.faction_code, c.pack_code,
		        c.loyal, c.is_unique, c.shadow, c.deck_limit, c.traits,
		        dc.section, dc.count
		 FROM deck_cards dc
		 JOIN cards c ON c.code = dc.card_code
		 WHERE dc.deck_id = $1
		 ORDER BY dc.section, c.code`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dc domain.DeckCard
		if err := rows.Scan(
			&dc.Card.Code, &dc.Card.Name, &dc.Card.TypeCode, &dc.Card.FactionCode, &dc.Card.PackCode,
			&dc.Card.Loyal, &dc.Card.Unique, &dc.Card.Shadow, &dc.Card.DeckLimit, pq.Array(&dc.Card.Traits),
			&dc.Section, &dc.Count,
		); err != nil {
			return nil, err
		}
		d.Cards = append(d.Cards, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetAllPacks returns every known pack.
func (r *PostgresRepository) GetAllPacks(ctx context.Context) ([]*domain.Pack, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, name, released_at FROM packs ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Pack
	for rows.Next() {
		var p domain.Pack
		if err := rows.Scan(&p.Code, &p.Name, &p.ReleasedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// GetRestrictedLists returns the known restricted lists in display order.
// Pods are stored as a JSONB column.
func (r *PostgresRepository) GetRestrictedLists(ctx context.Context) ([]*domain.RestrictedList, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, version, restricted, banned, pods
		 FROM restricted_lists ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RestrictedList
	for rows.Next() {
		var (
			l       domain.RestrictedList
			podsRaw []byte
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Version, pq.Array(&l.Restricted), pq.Array(&l.Banned), &podsRaw); err != nil {
			return nil, err
		}
		if len(podsRaw) > 0 {
			if err := json.Unmarshal(podsRaw, &l.Pods); err != nil {
				return nil, err
			}
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
