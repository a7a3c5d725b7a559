package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

type UpdateCustomerRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func isSelf(r *http.Request, id uuid.UUID) bool {
	user, ok := auth.GetAuthenticatedUser(r.Context())
	return ok && user.ID == id
}

func (s *Server) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}
	if _, ok := s.authorize(w, r, rbac.ResourceCustomer, rbac.ActionRead, isSelf(r, id)); !ok {
		return
	}

	user, err := s.db.Queries().GetUserByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Customer"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}
	actor, ok := s.authorize(w, r, rbac.ResourceCustomer, rbac.ActionUpdate, isSelf(r, id))
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var user database.User
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		if user, err = q.UpdateUserName(r.Context(), id, strings.TrimSpace(req.Name)); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  actor.ID,
			Action:   audit.ActionUpdate,
			Resource: rbac.ResourceCustomer,
			EntityID: id,
		})
	})
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Customer"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
