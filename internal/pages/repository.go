package pages

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wingedflyer/backend/internal/models"
)

// Repository reads events for public display and records visits.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a page repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPublic returns a public event by ID. Private events return
// models.ErrNotFound so they are indistinguishable from missing ones.
func (r *Repository) GetPublic(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, title, content, is_public, COALESCE(urgent_message,''), view_count, edit_key_hash, COALESCE(qr_key,''), created_at, updated_at
		FROM events WHERE id = $1 AND is_public`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Content, &e.IsPublic, &e.UrgentMessage,
		&e.ViewCount, &e.EditKeyHash, &e.QRKey, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RecordView bumps the counter and logs the viewer IP in one transaction.
func (r *Repository) RecordView(ctx context.Context, eventID uuid.UUID, viewerIP string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE events SET view_count = view_count + 1 WHERE id = $1`, eventID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO page_views (event_id, viewer_ip) VALUES ($1, NULLIF($2,''))`, eventID, viewerIP); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
