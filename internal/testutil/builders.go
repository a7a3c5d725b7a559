package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

// TestPassword is the password every built user logs in with
const TestPassword = "correct-horse-battery"

// TestUser represents a test user
type TestUser struct {
	ID       uuid.UUID
	Email    string
	Name     string
	RoleID   uuid.UUID
	RoleName string
	IsOwner  bool
}

// UserBuilder provides a fluent interface for creating test users
type UserBuilder struct {
	email    string
	name     string
	roleName string
	roleID   *uuid.UUID
	isOwner  bool
	testDB   *TestDatabase
	t        *testing.T
}

// NewUser creates a new user builder; users are customers unless told otherwise
func (tdb *TestDatabase) NewUser(t *testing.T) *UserBuilder {
	return &UserBuilder{
		email:    fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		name:     "Test User",
		roleName: rbac.RoleCustomer,
		testDB:   tdb,
		t:        t,
	}
}

func (ub *UserBuilder) WithEmail(email string) *UserBuilder {
	ub.email = email
	return ub
}

func (ub *UserBuilder) WithName(name string) *UserBuilder {
	ub.name = name
	return ub
}

func (ub *UserBuilder) AsCustomer() *UserBuilder {
	ub.roleName = rbac.RoleCustomer
	return ub
}

func (ub *UserBuilder) AsStaff() *UserBuilder {
	ub.roleName = rbac.RoleStaff
	return ub
}

func (ub *UserBuilder) AsAdministrator() *UserBuilder {
	ub.roleName = rbac.RoleAdministrator
	return ub
}

// AsOwner creates a store owner without any role
func (ub *UserBuilder) AsOwner() *UserBuilder {
	ub.isOwner = true
	ub.roleName = ""
	return ub
}

// WithRole assigns a role created by RoleBuilder
func (ub *UserBuilder) WithRole(roleID uuid.UUID) *UserBuilder {
	ub.roleID = &roleID
	ub.roleName = ""
	return ub
}

// Create creates the user in the database and returns the TestUser
func (ub *UserBuilder) Create() *TestUser {
	ctx := context.Background()

	roleID := ub.roleID
	if ub.roleName != "" {
		role, err := ub.testDB.Queries().GetRoleByName(ctx, ub.roleName)
		require.NoError(ub.t, err, "Failed to load role %s", ub.roleName)
		roleID = &role.ID
	}

	hash, err := auth.HashPassword(TestPassword)
	require.NoError(ub.t, err)

	u, err := ub.testDB.Queries().CreateUser(ctx, database.CreateUserParams{
		Email:        ub.email,
		Name:         ub.name,
		PasswordHash: hash,
		RoleID:       roleID,
		IsOwner:      ub.isOwner,
	})
	require.NoError(ub.t, err, "Failed to create user")

	tu := &TestUser{ID: u.ID, Email: u.Email, Name: u.Name, IsOwner: u.IsOwner}
	if u.RoleID != nil {
		tu.RoleID = *u.RoleID
	}
	if u.RoleName != nil {
		tu.RoleName = *u.RoleName
	}
	return tu
}

// RoleBuilder creates a custom role starting from the all-false matrix
type RoleBuilder struct {
	name   string
	scope  rbac.Scope
	grants []rbac.Permission
	testDB *TestDatabase
	t      *testing.T
}

func (tdb *TestDatabase) NewRole(t *testing.T) *RoleBuilder {
	return &RoleBuilder{
		name:   "role-" + uuid.NewString()[:8],
		scope:  rbac.ScopeAdmin,
		testDB: tdb,
		t:      t,
	}
}

func (rb *RoleBuilder) WithName(name string) *RoleBuilder {
	rb.name = name
	return rb
}

func (rb *RoleBuilder) WithScope(scope rbac.Scope) *RoleBuilder {
	rb.scope = scope
	return rb
}

// Grant sets one matrix cell; RoleID is filled in on Create
func (rb *RoleBuilder) Grant(p rbac.Permission) *RoleBuilder {
	rb.grants = append(rb.grants, p)
	return rb
}

func (rb *RoleBuilder) Create() rbac.Role {
	ctx := context.Background()
	var role rbac.Role

	err := rb.testDB.InTx(ctx, func(q *database.Queries) error {
		var err error
		role, err = q.CreateRole(ctx, rb.name, rb.scope, "")
		if err != nil {
			return err
		}
		for _, p := range rbac.DefaultPermissions(role.ID) {
			if err := q.InsertPermission(ctx, p); err != nil {
				return err
			}
		}
		for _, g := range rb.grants {
			g.RoleID = role.ID
			if _, err := q.UpdatePermission(ctx, g); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(rb.t, err, "Failed to create role")
	return role
}

// CategoryBuilder provides a fluent interface for creating test categories
type CategoryBuilder struct {
	name   string
	slug   string
	testDB *TestDatabase
	t      *testing.T
}

func (tdb *TestDatabase) NewCategory(t *testing.T) *CategoryBuilder {
	suffix := uuid.NewString()[:8]
	return &CategoryBuilder{
		name:   "Category " + suffix,
		slug:   "category-" + suffix,
		testDB: tdb,
		t:      t,
	}
}

func (cb *CategoryBuilder) WithSlug(slug string) *CategoryBuilder {
	cb.slug = slug
	return cb
}

func (cb *CategoryBuilder) Create() database.Category {
	c, err := cb.testDB.Queries().CreateCategory(context.Background(), cb.name, cb.slug)
	require.NoError(cb.t, err, "Failed to create category")
	return c
}

// ProductBuilder provides a fluent interface for creating test products
type ProductBuilder struct {
	params database.UpsertProductParams
	testDB *TestDatabase
	t      *testing.T
}

func (tdb *TestDatabase) NewProduct(t *testing.T) *ProductBuilder {
	suffix := uuid.NewString()[:8]
	return &ProductBuilder{
		params: database.UpsertProductParams{
			Name:       "Product " + suffix,
			Slug:       "product-" + suffix,
			PriceCents: 1000,
			Stock:      10,
			Active:     true,
		},
		testDB: tdb,
		t:      t,
	}
}

func (pb *ProductBuilder) WithName(name string) *ProductBuilder {
	pb.params.Name = name
	return pb
}

func (pb *ProductBuilder) WithSlug(slug string) *ProductBuilder {
	pb.params.Slug = slug
	return pb
}

func (pb *ProductBuilder) WithPrice(cents int64) *ProductBuilder {
	pb.params.PriceCents = cents
	return pb
}

func (pb *ProductBuilder) WithStock(stock int32) *ProductBuilder {
	pb.params.Stock = stock
	return pb
}

func (pb *ProductBuilder) Inactive() *ProductBuilder {
	pb.params.Active = false
	return pb
}

func (pb *ProductBuilder) InCategory(c database.Category) *ProductBuilder {
	pb.params.CategoryID = &c.ID
	return pb
}

func (pb *ProductBuilder) Create() database.Product {
	p, err := pb.testDB.Queries().CreateProduct(context.Background(), pb.params)
	require.NoError(pb.t, err, "Failed to create product")
	return p
}
