package api

import (
	"net/http"

	"github.com/vendora/vendora-backend/internal/rbac"
)

func (s *Server) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ResourceAudit, rbac.ActionRead, false); !ok {
		return
	}
	limit, offset, errb := paginationFromQuery(r)
	if errb != nil {
		writeError(w, errb)
		return
	}
	resource := r.URL.Query().Get("resource")
	if resource != "" && !rbac.Resource(resource).Valid() {
		writeError(w, ValidationErr("Unknown resource", []ErrorDetail{{Field: "resource", Message: "is not a registered resource"}}))
		return
	}

	q := s.db.Queries()
	logs, err := q.ListAuditLogs(r.Context(), resource, limit, offset)
	if err != nil {
		internalError(w, r, "Failed to list audit logs", err)
		return
	}
	total, err := q.CountAuditLogs(r.Context(), resource)
	if err != nil {
		internalError(w, r, "Failed to count audit logs", err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(mapSlice(logs, toAuditLogResponse), total, limit, offset))
}
