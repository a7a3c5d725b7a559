package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

var (
	ErrMissingToken = errors.New("authorization header missing")
	ErrInvalidToken = errors.New("invalid access token")
)

type AuthenticatedUser struct {
	ID       uuid.UUID
	Email    string
	Name     string
	RoleID   uuid.UUID
	RoleName string
	IsOwner  bool
}

// Principal is the evaluator's view of the user.
func (u *AuthenticatedUser) Principal() rbac.Principal {
	return rbac.Principal{
		UserID:  u.ID,
		RoleID:  u.RoleID,
		IsOwner: u.IsOwner,
	}
}

func NewAuthenticatedUser(u database.User) *AuthenticatedUser {
	au := &AuthenticatedUser{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		IsOwner: u.IsOwner,
	}
	if u.RoleID != nil {
		au.RoleID = *u.RoleID
	}
	if u.RoleName != nil {
		au.RoleName = *u.RoleName
	}
	return au
}

type Authenticator struct {
	jwtService *JWTService
	queries    *database.Queries
}

func NewAuthenticator(jwtService *JWTService, queries *database.Queries) *Authenticator {
	return &Authenticator{
		jwtService: jwtService,
		queries:    queries,
	}
}

// Authenticate resolves the bearer token of r to the current state of its
// user. Role changes therefore apply on the next request.
func (a *Authenticator) Authenticate(r *http.Request) (*AuthenticatedUser, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrMissingToken
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return nil, fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	claims, err := a.jwtService.ValidateToken(r.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := a.queries.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	return NewAuthenticatedUser(user), nil
}

func WithUser(ctx context.Context, user *AuthenticatedUser) context.Context {
	return context.WithValue(ctx, UserClaimsKey, user)
}

func GetAuthenticatedUser(ctx context.Context) (*AuthenticatedUser, bool) {
	user, ok := ctx.Value(UserClaimsKey).(*AuthenticatedUser)
	return user, ok
}
