package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/logging"
	"github.com/vendora/vendora-backend/internal/rbac"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrRefreshInvalid     = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles password login and rotating refresh tokens.
type AuthService struct {
	store         *redisStore
	jwt           *JWTService
	db            *database.Queries
	refreshExpiry time.Duration
}

func NewAuthService(redisClient *redis.Client, jwtSvc *JWTService, queries *database.Queries, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		store:         newRedisStore(redisClient),
		jwt:           jwtSvc,
		db:            queries,
		refreshExpiry: cfg.RefreshExpiry,
	}
}

// Register creates a storefront account holding the customer role.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (database.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return database.User{}, err
	}

	role, err := s.db.GetRoleByName(ctx, rbac.RoleCustomer)
	if err != nil {
		return database.User{}, fmt.Errorf("loading customer role: %w", err)
	}

	user, err := s.db.CreateUser(ctx, database.CreateUserParams{
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		RoleID:       &role.ID,
	})
	if errors.Is(err, database.ErrConflict) {
		return database.User{}, ErrEmailTaken
	}
	if err != nil {
		return database.User{}, fmt.Errorf("creating user: %w", err)
	}

	logging.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the password and returns a new access + refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	user, err := s.db.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return "", "", ErrInvalidCredentials
	}
	if err != nil {
		return "", "", fmt.Errorf("loading user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", "", fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return "", "", ErrInvalidCredentials
	}

	return s.issueTokenPair(ctx, user.ID)
}

// rotates refresh token and returns new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (newAccess, newRefresh string, err error) {
	userIDStr, err := s.store.takeRefreshToken(ctx, hashString(refreshToken))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrRefreshInvalid
		}
		return "", "", fmt.Errorf("retrieving refresh token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid user ID in refresh token: %w", err)
	}

	if _, err := s.db.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", "", ErrUserNotFound
		}
		return "", "", fmt.Errorf("loading user: %w", err)
	}

	newAccess, newRefresh, err = s.issueTokenPair(ctx, userID)
	if err != nil {
		return "", "", err
	}

	logging.Info("refresh token rotated", "user_id", userID)
	return newAccess, newRefresh, nil
}

// logs out user; unknown tokens are not an error
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.deleteRefreshToken(ctx, hashString(refreshToken)); err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}
	return nil
}

// generates a JWT access token and a random refresh token
func (s *AuthService) issueTokenPair(ctx context.Context, userID uuid.UUID) (accessToken, refreshToken string, err error) {
	accessToken, err = s.jwt.GenerateToken(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("generating access token: %w", err)
	}

	rawRefresh, err := generateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("generating refresh token: %w", err)
	}

	if err := s.store.storeRefreshToken(ctx, hashString(rawRefresh), userID.String(), s.refreshExpiry); err != nil {
		return "", "", fmt.Errorf("storing refresh token: %w", err)
	}

	return accessToken, rawRefresh, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// returns 32 random bytes as a hex string (64 chars).
func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
