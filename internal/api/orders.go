package api

import (
	"errors"
	"net/http"

	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/checkout"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

var errInvalidTransition = errors.New("invalid order status transition")

type CheckoutRequest struct {
	ReturnURL string `json:"return_url" validate:"max=2048"`
}

type UpdateOrderStatusRequest struct {
	Status database.OrderStatus `json:"status" validate:"required,oneof=paid shipped completed cancelled"`
}

func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceOrder, rbac.ActionCreate, false)
	if !ok {
		return
	}
	var req CheckoutRequest
	if r.ContentLength != 0 {
		if errb := s.decodeJSON(r, &req); errb != nil {
			writeError(w, errb)
			return
		}
	}

	customer, err := s.db.Queries().GetUserByID(r.Context(), user.ID)
	if err != nil {
		internalError(w, r, "Failed to load customer", err)
		return
	}

	res, err := s.checkout.Checkout(r.Context(), &customer, req.ReturnURL)
	var stockErr *checkout.StockError
	switch {
	case errors.Is(err, checkout.ErrInvalidReturnURL):
		writeError(w, ValidationErr("Invalid return URL", []ErrorDetail{{Field: "return_url", Message: err.Error()}}))
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, ValidationErr("Cart is empty", nil))
	case errors.As(err, &stockErr) && errors.Is(err, checkout.ErrProductUnavailable):
		writeError(w, ConflictErr("Product is no longer available").WithContext(ErrorContext{
			"product_id":   stockErr.ProductID,
			"product_name": stockErr.Name,
		}))
	case errors.As(err, &stockErr):
		writeError(w, InsufficientStockErr(stockErr.Name, stockErr.Requested, stockErr.Available))
	case err != nil:
		internalError(w, r, "Checkout failed", err)
	default:
		writeJSON(w, http.StatusCreated, toOrderResponse(res.Order, res.Items))
	}
}

// ListOrders returns every order to roles with unrestricted read and only
// the caller's own to selfOnly roles.
func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	user, scope, ok := s.readScope(w, r, rbac.ResourceOrder)
	if !ok {
		return
	}
	limit, offset, errb := paginationFromQuery(r)
	if errb != nil {
		writeError(w, errb)
		return
	}

	filter := database.OrderFilter{Limit: limit, Offset: offset}
	if scope == rbac.ReadOwn {
		filter.CustomerID = &user.ID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := database.OrderStatus(raw)
		if !status.Valid() {
			writeError(w, ValidationErr("Invalid status filter", []ErrorDetail{{Field: "status", Message: "unknown order status"}}))
			return
		}
		filter.Status = &status
	}

	q := s.db.Queries()
	orders, err := q.ListOrders(r.Context(), filter)
	if err != nil {
		internalError(w, r, "Failed to list orders", err)
		return
	}
	total, err := q.CountOrders(r.Context(), filter)
	if err != nil {
		internalError(w, r, "Failed to count orders", err)
		return
	}

	resp := mapSlice(orders, func(o database.Order) OrderResponse { return toOrderResponse(o, nil) })
	writeJSON(w, http.StatusOK, listOf(resp, total, limit, offset))
}

func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceOrder, rbac.ActionRead, true)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	q := s.db.Queries()
	order, err := q.GetOrder(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Order"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load order", err)
		return
	}

	if !s.ownsOrder(r, order) && !s.allowedOnForeign(w, r, user, rbac.ResourceOrder, rbac.ActionRead, "Order") {
		return
	}

	items, err := q.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		internalError(w, r, "Failed to load order items", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

func (s *Server) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceOrder, rbac.ActionUpdate, true)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	current, err := s.db.Queries().GetOrder(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Order"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load order", err)
		return
	}

	if !s.ownsOrder(r, current) && !s.allowedOnForeign(w, r, user, rbac.ResourceOrder, rbac.ActionUpdate, "Order") {
		return
	}
	var req UpdateOrderStatusRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var (
		updated database.Order
		from    database.OrderStatus
	)
	err = s.db.InTx(r.Context(), func(q *database.Queries) error {
		locked, err := q.GetOrderForUpdate(r.Context(), id)
		if err != nil {
			return err
		}
		from = locked.Status
		if !locked.Status.CanTransitionTo(req.Status) {
			return errInvalidTransition
		}
		if updated, err = q.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
			return err
		}
		if req.Status == database.OrderStatusCancelled {
			if err := q.RestockOrder(r.Context(), id); err != nil {
				return err
			}
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionStatusChange,
			Resource: rbac.ResourceOrder,
			EntityID: id,
			Metadata: map[string]any{"from": from, "to": req.Status},
		})
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, NotFound("Order"))
		return
	case errors.Is(err, errInvalidTransition):
		writeError(w, ConflictErr("Order status cannot change from "+string(from)+" to "+string(req.Status)).
			WithContext(ErrorContext{"current_status": from, "requested_status": req.Status}))
		return
	case err != nil:
		internalError(w, r, "Failed to update order status", err)
		return
	}

	items, err := s.db.Queries().ListOrderItems(r.Context(), id)
	if err != nil {
		internalError(w, r, "Failed to load order items", err)
		return
	}
	s.notifyStatusChange(r, updated, items)
	writeJSON(w, http.StatusOK, toOrderResponse(updated, items))
}

func (s *Server) ownsOrder(r *http.Request, o database.Order) bool {
	return isSelf(r, o.CustomerID)
}

// the status change is already committed; a failed email only gets logged
func (s *Server) notifyStatusChange(r *http.Request, order database.Order, items []database.OrderItem) {
	customer, err := s.db.Queries().GetUserByID(r.Context(), order.CustomerID)
	if err != nil {
		logRequestError(r, "Failed to load customer for status email", err)
		return
	}
	s.mailer.OrderStatusChanged(checkout.OrderEmail(&customer, order, items))
}
