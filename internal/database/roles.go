package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vendora/vendora-backend/internal/rbac"
)

const roleColumns = `id, name, scope, is_system, description`

func scanRole(row pgx.Row) (rbac.Role, error) {
	var r rbac.Role
	err := row.Scan(&r.ID, &r.Name, &r.Scope, &r.IsSystem, &r.Description)
	return r, mapErr(err)
}

func (q *Queries) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := q.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY scope, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []rbac.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (q *Queries) GetRole(ctx context.Context, id uuid.UUID) (rbac.Role, error) {
	return scanRole(q.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

func (q *Queries) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	return scanRole(q.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

func (q *Queries) CreateRole(ctx context.Context, name string, scope rbac.Scope, description string) (rbac.Role, error) {
	return scanRole(q.db.QueryRow(ctx,
		`INSERT INTO roles (name, scope, description) VALUES ($1, $2, $3) RETURNING `+roleColumns,
		name, scope, description))
}

// DeleteRole removes a non-system role. Users still referencing the role make
// the foreign key fail, which surfaces as ErrConflict.
func (q *Queries) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND NOT is_system`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&n)
	return n, err
}

const permissionColumns = `role_id, resource, can_create, can_read, can_update, can_delete, self_only, locked`

func scanPermission(row pgx.Row) (rbac.Permission, error) {
	var p rbac.Permission
	err := row.Scan(&p.RoleID, &p.Resource, &p.CanCreate, &p.CanRead, &p.CanUpdate, &p.CanDelete, &p.SelfOnly, &p.Locked)
	return p, mapErr(err)
}

// RolePermissions satisfies rbac.PermissionStore.
func (q *Queries) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]rbac.Permission, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE role_id = $1 ORDER BY resource`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []rbac.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetPermissionForUpdate locks the matrix cell for the rest of the transaction.
func (q *Queries) GetPermissionForUpdate(ctx context.Context, roleID uuid.UUID, resource rbac.Resource) (rbac.Permission, error) {
	return scanPermission(q.db.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE role_id = $1 AND resource = $2 FOR UPDATE`,
		roleID, resource))
}

// InsertPermission writes a matrix cell; the (role_id, resource) primary key
// keeps the one-row-per-cell invariant.
func (q *Queries) InsertPermission(ctx context.Context, p rbac.Permission) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO permissions (`+permissionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.RoleID, p.Resource, p.CanCreate, p.CanRead, p.CanUpdate, p.CanDelete, p.SelfOnly, p.Locked)
	return mapErr(err)
}

func (q *Queries) UpdatePermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	return scanPermission(q.db.QueryRow(ctx, `
		UPDATE permissions
		SET can_create = $3, can_read = $4, can_update = $5, can_delete = $6, self_only = $7
		WHERE role_id = $1 AND resource = $2
		RETURNING `+permissionColumns,
		p.RoleID, p.Resource, p.CanCreate, p.CanRead, p.CanUpdate, p.CanDelete, p.SelfOnly))
}

func (q *Queries) TouchRole(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, id)
	return err
}
