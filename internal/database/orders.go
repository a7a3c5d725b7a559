package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether an administrator may move an order from s
// to next. Expiry is done by the background job only.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Status     OrderStatus
	TotalCents int64
	Currency   string
	ReturnURL  *string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int64
	Quantity       int32
}

const orderColumns = `id, customer_id, status, total_cents, currency, return_url, expires_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.Currency,
		&o.ReturnURL, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	return o, mapErr(err)
}

type CreateOrderParams struct {
	CustomerID uuid.UUID
	TotalCents int64
	Currency   string
	ReturnURL  *string
	ExpiresAt  time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status, total_cents, currency, return_url, expires_at)
		VALUES ($1, 'pending', $2, $3, $4, $5)
		RETURNING `+orderColumns,
		arg.CustomerID, arg.TotalCents, arg.Currency, arg.ReturnURL, arg.ExpiresAt))
}

func (q *Queries) CreateOrderItem(ctx context.Context, item OrderItem) (OrderItem, error) {
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, name, unit_price_cents, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		item.OrderID, item.ProductID, item.Name, item.UnitPriceCents, item.Quantity).Scan(&item.ID)
	return item, mapErr(err)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, name, unit_price_cents, quantity
		FROM order_items WHERE order_id = $1 ORDER BY name, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// OrderFilter: a nil CustomerID lists every customer's orders.
type OrderFilter struct {
	CustomerID *uuid.UUID
	Status     *OrderStatus
	Limit      int64
	Offset     int64
}

const orderFilterWhere = ` WHERE ($1::uuid IS NULL OR customer_id = $1) AND ($2::text IS NULL OR status = $2)`

func (q *Queries) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	rows, err := q.db.Query(ctx, `SELECT `+orderColumns+` FROM orders`+orderFilterWhere+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.CustomerID, f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) CountOrders(ctx context.Context, f OrderFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+orderFilterWhere, f.CustomerID, f.Status).Scan(&n)
	return n, err
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns,
		id, status))
}

// ExpirePendingOrders moves every pending order whose deadline is before
// cutoff to expired and releases the stock those orders held, in one
// statement. It returns how many orders changed.
func (q *Queries) ExpirePendingOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		WITH expired AS (
			UPDATE orders SET status = 'expired', updated_at = NOW()
			WHERE status = 'pending' AND expires_at < $1
			RETURNING id
		), released AS (
			UPDATE products p SET stock = p.stock + r.quantity, updated_at = NOW()
			FROM (
				SELECT oi.product_id, SUM(oi.quantity)::int AS quantity
				FROM order_items oi JOIN expired e ON e.id = oi.order_id
				GROUP BY oi.product_id
			) r
			WHERE p.id = r.product_id
		)
		SELECT COUNT(*) FROM expired`, cutoff).Scan(&n)
	return n, err
}

// RestockOrder puts the quantities of an order back on its products. Callers
// run it in the transaction that cancels the order.
func (q *Queries) RestockOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE products p SET stock = p.stock + r.quantity, updated_at = NOW()
		FROM (
			SELECT product_id, SUM(quantity)::int AS quantity
			FROM order_items WHERE order_id = $1
			GROUP BY product_id
		) r
		WHERE p.id = r.product_id`, orderID)
	return err
}
