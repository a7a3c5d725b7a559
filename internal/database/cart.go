package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CartLine struct {
	ProductID  uuid.UUID
	Name       string
	Slug       string
	PriceCents int64
	Stock      int32
	Active     bool
	Quantity   int32
	CreatedAt  time.Time
}

func (l CartLine) LineTotalCents() int64 {
	return l.PriceCents * int64(l.Quantity)
}

// AddToCart upserts a line, adding to the existing quantity.
func (q *Queries) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int32) (int32, error) {
	var total int32
	err := q.db.QueryRow(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING quantity`,
		userID, productID, quantity).Scan(&total)
	return total, mapErr(err)
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int32) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	return err
}

func (q *Queries) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

func (q *Queries) GetCart(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	rows, err := q.db.Query(ctx, `
		SELECT p.id, p.name, p.slug, p.price_cents, p.stock, p.active, ci.quantity, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, p.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Slug, &l.PriceCents, &l.Stock, &l.Active, &l.Quantity, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
