package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	RoleID       *uuid.UUID
	RoleName     *string
	IsOwner      bool
	CreatedAt    time.Time
}

const userSelect = `
	SELECT u.id, u.email, u.name, u.password_hash, u.role_id, r.name, u.is_owner, u.created_at
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.IsOwner, &u.CreatedAt)
	return u, mapErr(err)
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	RoleID       *uuid.UUID
	IsOwner      bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role_id, is_owner)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		arg.Email, arg.Name, arg.PasswordHash, arg.RoleID, arg.IsOwner).Scan(&id)
	if err != nil {
		return User{}, mapErr(err)
	}
	return q.GetUserByID(ctx, id)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, userSelect+` WHERE u.email = $1`, email))
}

func (q *Queries) ListUsers(ctx context.Context, limit, offset int64) ([]User, error) {
	rows, err := q.db.Query(ctx, userSelect+` ORDER BY u.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (q *Queries) UpdateUserRole(ctx context.Context, userID, roleID uuid.UUID) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, userID, roleID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (User, error) {
	tag, err := q.db.Exec(ctx, `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`, userID, name)
	if err != nil {
		return User{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return q.GetUserByID(ctx, userID)
}
