package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wingedflyer/backend/internal/models"
)

const eventColumns = `id, title, content, is_public, COALESCE(urgent_message,''), view_count, edit_key_hash, COALESCE(qr_key,''), created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Content, &e.IsPublic, &e.UrgentMessage,
		&e.ViewCount, &e.EditKeyHash, &e.QRKey, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event. The id is generated server-side and is
// immutable afterwards: the QR code is derived from it.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, content, is_public, edit_key_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Content, e.IsPublic, e.EditKeyHash).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID, or models.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, q, id))
}

// Update replaces title, content and visibility. Last write wins: the whole
// row is overwritten in a single statement, no merge.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, content string, isPublic bool) (*models.Event, error) {
	const q = `UPDATE events SET title = $1, content = $2, is_public = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, title, content, isPublic, id))
}

// SetUrgentMessage sets or clears (empty string) the urgent banner.
func (r *Repository) SetUrgentMessage(ctx context.Context, id uuid.UUID, msg string) (*models.Event, error) {
	const q = `UPDATE events SET urgent_message = NULLIF($1,''), updated_at = NOW()
		WHERE id = $2
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, msg, id))
}

// SetQRKey records the S3 object key after the QR artifact is mirrored.
func (r *Repository) SetQRKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE events SET qr_key = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, key, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes an event by ID. Messages and page views cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM events WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
