package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"thronehall/internal/gamerecord/domain"
)

// PostgresRepository implements Repository against the shared Postgres instance.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns a game-record repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateGame persists the record. The record must have ID set.
func (r *PostgresRepository) CreateGame(ctx context.Context, g *domain.GameRecord) error {
	players, err := json.Marshal(g.Players)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO games (id, table_id, name, node_name, started_at, players)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.TableID, g.Name, g.NodeName, g.StartedAt, players)
	return err
}

// UpdateGame updates the mutable outcome fields of the record.
func (r *PostgresRepository) UpdateGame(ctx context.Context, g *domain.GameRecord) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET finished_at = $2, winner = $3, win_reason = $4 WHERE id = $1`,
		g.ID, g.FinishedAt, g.Winner, g.WinReason)
	return err
}

// GetGameByTableID returns the most recent record for the table, or nil if none.
func (r *PostgresRepository) GetGameByTableID(ctx context.Context, tableID string) (*domain.GameRecord, error) {
	var (
		g       domain.GameRecord
		players []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, table_id, name, node_name, started_at, finished_at, COALESCE(winner, ''), COALESCE(win_reason, ''), players
		 FROM games WHERE table_id = $1
		 ORDER BY started_at DESC LIMIT 1`,
		tableID,
	).Scan(&g.ID, &g.TableID, &g.Name, &g.NodeName, &g.StartedAt, &g.FinishedAt, &g.Winner, &g.WinReason, &players)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(players) > 0 {
		if err := json.Unmarshal(players, &g.Players); err != nil {
			return nil, err
		}
	}
	return &g, nil
}
