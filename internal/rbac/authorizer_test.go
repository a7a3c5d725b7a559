package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error) {
	args := m.Called(ctx, roleID)
	perms, _ := args.Get(0).([]Permission)
	return perms, args.Error(1)
}

func TestAuthorizer_Can(t *testing.T) {
	ctx := context.Background()
	roleID := uuid.New()
	user := Principal{UserID: uuid.New(), RoleID: roleID}

	t.Run("loads role permissions", func(t *testing.T) {
		store := &mockStore{}
		store.On("RolePermissions", ctx, roleID).Return([]Permission{
			{RoleID: roleID, Resource: ResourceProduct, CanUpdate: true},
		}, nil).Once()

		allowed, err := NewAuthorizer(store).Can(ctx, user, ResourceProduct, ActionUpdate, false)
		require.NoError(t, err)
		assert.True(t, allowed)
		store.AssertExpectations(t)
	})

	t.Run("owner skips the store", func(t *testing.T) {
		store := &mockStore{}
		allowed, err := NewAuthorizer(store).Can(ctx, Principal{IsOwner: true}, ResourceRole, ActionDelete, false)
		require.NoError(t, err)
		assert.True(t, allowed)
		store.AssertNotCalled(t, "RolePermissions", mock.Anything, mock.Anything)
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		store := &mockStore{}
		store.On("RolePermissions", ctx, roleID).Return(nil, errors.New("connection refused")).Once()

		_, err := NewAuthorizer(store).Can(ctx, user, ResourceProduct, ActionRead, false)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("role-less principal", func(t *testing.T) {
		store := &mockStore{}
		_, err := NewAuthorizer(store).Can(ctx, Principal{UserID: uuid.New()}, ResourceProduct, ActionRead, false)
		assert.ErrorIs(t, err, ErrInvalidPrincipal)
	})
}

func TestAuthorizer_ReadScope(t *testing.T) {
	ctx := context.Background()
	roleID := uuid.New()
	user := Principal{UserID: uuid.New(), RoleID: roleID}

	tests := []struct {
		name  string
		perms []Permission
		want  ReadScope
	}{
		{"unrestricted read", []Permission{{RoleID: roleID, Resource: ResourceOrder, CanRead: true}}, ReadAll},
		{"self only read", []Permission{{RoleID: roleID, Resource: ResourceOrder, CanRead: true, SelfOnly: true}}, ReadOwn},
		{"no read column", []Permission{{RoleID: roleID, Resource: ResourceOrder, CanCreate: true}}, ReadNone},
		{"no row", nil, ReadNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			store.On("RolePermissions", ctx, roleID).Return(tt.perms, nil).Once()

			scope, err := NewAuthorizer(store).ReadScope(ctx, user, ResourceOrder)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope)
			store.AssertExpectations(t)
		})
	}

	t.Run("owner reads all", func(t *testing.T) {
		scope, err := NewAuthorizer(&mockStore{}).ReadScope(ctx, Principal{IsOwner: true}, ResourceAudit)
		require.NoError(t, err)
		assert.Equal(t, ReadAll, scope)
		assert.Equal(t, "all", scope.String())
	})
}
