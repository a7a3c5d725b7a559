package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Media struct {
	ID           uuid.UUID
	ProductID    *uuid.UUID
	S3Key        string
	ThumbnailKey string
	ContentType  string
	Width        int32
	Height       int32
	UploadedBy   *uuid.UUID
	CreatedAt    time.Time
}

const mediaColumns = `id, product_id, s3_key, thumbnail_key, content_type, width, height, uploaded_by, created_at`

func scanMedia(row pgx.Row) (Media, error) {
	var m Media
	err := row.Scan(&m.ID, &m.ProductID, &m.S3Key, &m.ThumbnailKey, &m.ContentType,
		&m.Width, &m.Height, &m.UploadedBy, &m.CreatedAt)
	return m, mapErr(err)
}

func (q *Queries) CreateMedia(ctx context.Context, m Media) (Media, error) {
	return scanMedia(q.db.QueryRow(ctx, `
		INSERT INTO media (id, product_id, s3_key, thumbnail_key, content_type, width, height, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+mediaColumns,
		m.ID, m.ProductID, m.S3Key, m.ThumbnailKey, m.ContentType, m.Width, m.Height, m.UploadedBy))
}

func (q *Queries) GetMedia(ctx context.Context, id uuid.UUID) (Media, error) {
	return scanMedia(q.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
}

// ListMedia returns newest first; a nil productID lists everything.
func (q *Queries) ListMedia(ctx context.Context, productID *uuid.UUID, limit, offset int64) ([]Media, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+mediaColumns+` FROM media
		WHERE ($1::uuid IS NULL OR product_id = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) CountMedia(ctx context.Context, productID *uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM media WHERE ($1::uuid IS NULL OR product_id = $1)`, productID).Scan(&n)
	return n, err
}

func (q *Queries) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
