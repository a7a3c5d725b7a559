package api

import (
	"errors"
	"net/http"

	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/middleware"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	user, err := s.authService.Register(r.Context(), req.Email, req.Name, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		writeError(w, ConflictErr("Email is already registered"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to register user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	logger := middleware.GetLoggerFromContext(r.Context())
	access, refresh, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.Warn("Failed login attempt", "email", auth.NormalizeEmail(req.Email))
		writeError(w, InvalidCredentials())
		return
	}
	if err != nil {
		internalError(w, r, "Failed to log in", err)
		return
	}

	logger.Info("User logged in successfully", "email", auth.NormalizeEmail(req.Email))
	writeJSON(w, http.StatusOK, s.tokenResponse(access, refresh))
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	access, refresh, err := s.authService.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrRefreshInvalid) || errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, Unauthorized("Invalid or expired refresh token"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to refresh token", err)
		return
	}

	writeJSON(w, http.StatusOK, s.tokenResponse(access, refresh))
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	if err := s.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		internalError(w, r, "Failed to log out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetAuthenticatedUser(r.Context())
	if !ok {
		writeError(w, Unauthorized("Authentication required"))
		return
	}

	dbUser, err := s.db.Queries().GetUserByID(r.Context(), user.ID)
	if err != nil {
		internalError(w, r, "Failed to load current user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(dbUser))
}

func (s *Server) tokenResponse(access, refresh string) TokenResponse {
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.JWT.Expiry.Seconds()),
	}
}
