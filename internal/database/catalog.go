package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

type Product struct {
	ID          uuid.UUID
	CategoryID  *uuid.UUID
	Name        string
	Slug        string
	Description string
	PriceCents  int64
	Stock       int32
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const productColumns = `id, category_id, name, slug, description, price_cents, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description,
		&p.PriceCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, slug, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (q *Queries) CreateCategory(ctx context.Context, name, slug string) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, name, slug, created_at`,
		name, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	return c, mapErr(err)
}

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// likeEscaper makes a search term match literally inside ILIKE, where the
// default escape character is a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	CategorySlug string
	Search       string
	ActiveOnly   bool
	Limit        int64
	Offset       int64
}

func (f ProductFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.ActiveOnly {
		clauses = append(clauses, "p.active")
	}
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		clauses = append(clauses, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q *Queries) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	where, args := f.where()
	args = append(args, f.Limit, f.Offset)
	sql := fmt.Sprintf(`
		SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price_cents, p.stock, p.active, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id%s
		ORDER BY p.name
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (q *Queries) CountProducts(ctx context.Context, f ProductFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`+where, args...).Scan(&n)
	return n, err
}

func (q *Queries) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
}

type UpsertProductParams struct {
	CategoryID  *uuid.UUID
	Name        string
	Slug        string
	Description string
	PriceCents  int64
	Stock       int32
	Active      bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg UpsertProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `
		INSERT INTO products (category_id, name, slug, description, price_cents, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		arg.CategoryID, arg.Name, arg.Slug, arg.Description, arg.PriceCents, arg.Stock, arg.Active))
}

func (q *Queries) UpdateProduct(ctx context.Context, id uuid.UUID, arg UpsertProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, `
		UPDATE products
		SET category_id = $2, name = $3, slug = $4, description = $5,
		    price_cents = $6, stock = $7, active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		id, arg.CategoryID, arg.Name, arg.Slug, arg.Description, arg.PriceCents, arg.Stock, arg.Active))
}

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockProductsForCheckout returns the rows locked FOR UPDATE so concurrent
// checkouts serialise on stock.
func (q *Queries) LockProductsForCheckout(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (q *Queries) DecrementStock(ctx context.Context, id uuid.UUID, quantity int32) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`, id, quantity)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
