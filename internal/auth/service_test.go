package auth_test

import (
	"context"
	"flag"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/rbac"
	"github.com/vendora/vendora-backend/internal/testutil"
)

var (
	sharedQueue *testutil.TestQueue
	sharedDB    *testutil.TestDatabase
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	t := &testing.T{}
	sharedQueue = testutil.NewTestQueue(t)
	sharedDB = testutil.NewTestDatabase(t)
	sharedDB.RunMigrations(t)

	code := m.Run()

	if sharedDB.Pool() != nil {
		sharedDB.Pool().Close()
	}
	sharedQueue.Close()

	os.Exit(code)
}

func newTestAuthService(t *testing.T) (*auth.AuthService, *auth.JWTService) {
	t.Helper()
	jwtSvc, err := auth.NewJWTService([]byte("test-signing-key-that-is-long-enough!"), "test-issuer", 15*time.Minute)
	require.NoError(t, err)

	return auth.NewAuthService(sharedQueue.Redis, jwtSvc, sharedDB.Queries(), config.AuthConfig{
		RefreshExpiry: 7 * 24 * time.Hour,
	}), jwtSvc
}

func TestAuthService_Register(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	svc, _ := newTestAuthService(t)

	t.Run("new accounts are customers", func(t *testing.T) {
		user, err := svc.Register(ctx, "  New.Shopper@Example.COM ", " Ada ", "long-enough-pw")

		require.NoError(t, err)
		assert.Equal(t, "new.shopper@example.com", user.Email)
		assert.Equal(t, "Ada", user.Name)
		assert.False(t, user.IsOwner)
		require.NotNil(t, user.RoleName)
		assert.Equal(t, rbac.RoleCustomer, *user.RoleName)
		assert.NotEqual(t, "long-enough-pw", user.PasswordHash)
	})

	t.Run("email is unique regardless of case", func(t *testing.T) {
		_, err := svc.Register(ctx, "NEW.SHOPPER@example.com", "Other", "long-enough-pw")
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})
}

func TestAuthService_Login(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedQueue.Cleanup(t)
	sharedDB.CleanupDatabase(t)
	svc, jwtSvc := newTestAuthService(t)
	user := sharedDB.NewUser(t).WithEmail("login@example.com").Create()

	t.Run("valid password returns token pair", func(t *testing.T) {
		access, refresh, err := svc.Login(ctx, "Login@Example.com", testutil.TestPassword)

		require.NoError(t, err)
		assert.Len(t, refresh, 64) // 32 bytes as hex

		claims, err := jwtSvc.ValidateToken(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, _, err := svc.Login(ctx, user.Email, "not-the-password")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, _, err = svc.Login(ctx, "nobody@example.com", testutil.TestPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()

	t.Run("rotation invalidates the old token", func(t *testing.T) {
		sharedQueue.Cleanup(t)
		sharedDB.CleanupDatabase(t)
		svc, _ := newTestAuthService(t)
		user := sharedDB.NewUser(t).Create()

		_, refresh, err := svc.Login(ctx, user.Email, testutil.TestPassword)
		require.NoError(t, err)

		access, rotated, err := svc.Refresh(ctx, refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEqual(t, refresh, rotated)

		_, _, err = svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, auth.ErrRefreshInvalid)

		_, _, err = svc.Refresh(ctx, rotated)
		assert.NoError(t, err)
	})

	t.Run("deleted user cannot refresh", func(t *testing.T) {
		sharedQueue.Cleanup(t)
		sharedDB.CleanupDatabase(t)
		svc, _ := newTestAuthService(t)
		user := sharedDB.NewUser(t).Create()

		_, refresh, err := svc.Login(ctx, user.Email, testutil.TestPassword)
		require.NoError(t, err)

		_, err = sharedDB.Pool().Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
		require.NoError(t, err)

		_, _, err = svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		sharedQueue.Cleanup(t)
		sharedDB.CleanupDatabase(t)
		svc, _ := newTestAuthService(t)
		user := sharedDB.NewUser(t).Create()

		_, refresh, err := svc.Login(ctx, user.Email, testutil.TestPassword)
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, refresh))
		_, _, err = svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, auth.ErrRefreshInvalid)

		// unknown tokens are not an error
		assert.NoError(t, svc.Logout(ctx, "never-issued"))
	})

	t.Run("expired refresh token", func(t *testing.T) {
		sharedQueue.Cleanup(t)
		sharedDB.CleanupDatabase(t)
		jwtSvc, err := auth.NewJWTService([]byte("test-signing-key-that-is-long-enough!"), "test-issuer", time.Minute)
		require.NoError(t, err)
		svc := auth.NewAuthService(sharedQueue.Redis, jwtSvc, sharedDB.Queries(), config.AuthConfig{RefreshExpiry: time.Second})
		user := sharedDB.NewUser(t).Create()

		_, refresh, err := svc.Login(ctx, user.Email, testutil.TestPassword)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, _, err := svc.Refresh(ctx, refresh)
			return err != nil
		}, 5*time.Second, 250*time.Millisecond)
	})
}

func TestAuthenticator_Authenticate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	_, jwtSvc := newTestAuthService(t)
	authn := auth.NewAuthenticator(jwtSvc, sharedDB.Queries())
	staff := sharedDB.NewUser(t).AsStaff().Create()

	request := func(header string) *auth.AuthenticatedUser {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		u, err := authn.Authenticate(r)
		if err != nil {
			return nil
		}
		return u
	}

	t.Run("resolves current role", func(t *testing.T) {
		token, err := jwtSvc.GenerateToken(ctx, staff.ID)
		require.NoError(t, err)

		u := request("Bearer " + token)
		require.NotNil(t, u)
		assert.Equal(t, rbac.RoleStaff, u.RoleName)
		assert.Equal(t, staff.RoleID, u.Principal().RoleID)
	})

	t.Run("error kinds", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		_, err := authn.Authenticate(r)
		assert.ErrorIs(t, err, auth.ErrMissingToken)

		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		_, err = authn.Authenticate(r)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		r.Header.Set("Authorization", "Bearer garbage")
		_, err = authn.Authenticate(r)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		ghost := sharedDB.NewUser(t).Create()
		token, err := jwtSvc.GenerateToken(ctx, ghost.ID)
		require.NoError(t, err)
		_, err = sharedDB.Pool().Exec(ctx, `DELETE FROM users WHERE id = $1`, ghost.ID)
		require.NoError(t, err)

		r.Header.Set("Authorization", "Bearer "+token)
		_, err = authn.Authenticate(r)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}
