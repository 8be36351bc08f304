package messages

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wingedflyer/backend/internal/models"
)

// Repository handles timeline message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a message repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Add appends a message to an event's timeline.
func (r *Repository) Add(ctx context.Context, m *models.Message) error {
	const q = `INSERT INTO event_messages (event_id, body) VALUES ($1, $2)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, m.EventID, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr interface{ SQLState() string }
		// 23503: foreign key violation, event row is gone
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23503" {
			return models.ErrNotFound
		}
		return err
	}
	return nil
}

// ListByEvent returns an event's messages, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Message, error) {
	const q = `SELECT id, event_id, body, created_at FROM event_messages
		WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.EventID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
