package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"thronehall/internal/account/domain"
)

// backlogLimit caps how many recent lobby messages a connecting user receives.
const backlogLimit = 50

// PostgresRepository implements Repository against the shared Postgres instance.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns an account repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetUserByUsername returns the user summary for username, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*domain.UserSummary, error) {
	var u domain.UserSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, avatar, role, registered_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Avatar, &u.Role, &u.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT blocked_username FROM user_blocklist WHERE user_id = $1`, u.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var blocked string
		if err := rows.Scan(&blocked); err != nil {
			return nil, err
		}
		u.BlockList = append(u.BlockList, blocked)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &u, nil
}

// AddLobbyMessage persists a lobby chat message and returns it with id,
// timestamp, and the sender's presentation fields filled in.
func (r *PostgresRepository) AddLobbyMessage(ctx context.Context, userID, text string) (*domain.PersistedMessage, error) {
	msg := &domain.PersistedMessage{
		ID:       uuid.NewString(),
		UserID:   userID,
		Text:     text,
		PostedAt: time.Now().UTC(),
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO lobby_messages (id, user_id, body, posted_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING (SELECT username FROM users WHERE id = $2), (SELECT avatar FROM users WHERE id = $2)`,
		msg.ID, msg.UserID, msg.Text, msg.PostedAt,
	).Scan(&msg.Username, &msg.Avatar)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RemoveLobbyMessage marks the message removed and records the moderator.
func (r *PostgresRepository) RemoveLobbyMessage(ctx context.Context, messageID, removedByUserID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lobby_messages SET removed = TRUE, removed_by = $2, removed_at = $3 WHERE id = $1`,
		messageID, removedByUserID, time.Now().UTC())
	return err
}

// GetLobbyMessagesForUser returns the recent, non-removed backlog oldest
// first. Each message carries the sender's block list so the lobby can apply
// both directions of the mutual-block filter even for offline senders.
func (r *PostgresRepository) GetLobbyMessagesForUser(ctx context.Context, userID string) ([]*domain.PersistedMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, u.username, u.avatar, m.body, m.posted_at,
		        COALESCE((SELECT array_agg(b.blocked_username)
		                  FROM user_blocklist b WHERE b.user_id = m.user_id), '{}')
		 FROM lobby_messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE NOT m.removed
		 ORDER BY m.posted_at DESC
		 LIMIT $1`,
		backlogLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PersistedMessage
	for rows.Next() {
		var m domain.PersistedMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Avatar, &m.Text, &m.PostedAt,
			pq.Array(&m.SenderBlockList)); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
