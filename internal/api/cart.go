package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

var errCartExceedsStock = errors.New("cart quantity exceeds stock")

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity" validate:"gt=0,max=1000"`
}

type UpdateCartItemRequest struct {
	Quantity int32 `json:"quantity" validate:"gt=0,max=1000"`
}

// a user's cart is always their own record

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCart, rbac.ActionRead, true)
	if !ok {
		return
	}
	s.writeCart(w, r, user.ID, http.StatusOK)
}

func (s *Server) AddCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCart, rbac.ActionCreate, true)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	product, err := s.db.Queries().GetProductByID(r.Context(), req.ProductID)
	if errors.Is(err, database.ErrNotFound) || err == nil && !product.Active {
		writeError(w, NotFound("Product"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load product", err)
		return
	}

	// stock is only reserved at checkout, but a line larger than the shelf
	// is refused up front
	var inCart int32
	err = s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		if inCart, err = q.AddToCart(r.Context(), user.ID, product.ID, req.Quantity); err != nil {
			return err
		}
		if inCart > product.Stock {
			return errCartExceedsStock
		}
		return nil
	})
	if errors.Is(err, errCartExceedsStock) {
		writeError(w, InsufficientStockErr(product.Name, inCart, product.Stock))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to add item to cart", err)
		return
	}
	s.writeCart(w, r, user.ID, http.StatusCreated)
}

func (s *Server) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCart, rbac.ActionUpdate, true)
	if !ok {
		return
	}
	productID, errb := uuidParam(r, "productID")
	if errb != nil {
		writeError(w, errb)
		return
	}
	var req UpdateCartItemRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	product, err := s.db.Queries().GetProductByID(r.Context(), productID)
	if errors.Is(err, database.ErrNotFound) || err == nil && !product.Active {
		writeError(w, NotFound("Product"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load product", err)
		return
	}
	if req.Quantity > product.Stock {
		writeError(w, InsufficientStockErr(product.Name, req.Quantity, product.Stock))
		return
	}

	err = s.db.Queries().UpdateCartItemQuantity(r.Context(), user.ID, productID, req.Quantity)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Cart item"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to update cart item", err)
		return
	}
	s.writeCart(w, r, user.ID, http.StatusOK)
}

func (s *Server) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCart, rbac.ActionDelete, true)
	if !ok {
		return
	}
	productID, errb := uuidParam(r, "productID")
	if errb != nil {
		writeError(w, errb)
		return
	}

	if err := s.db.Queries().RemoveFromCart(r.Context(), user.ID, productID); err != nil {
		internalError(w, r, "Failed to remove cart item", err)
		return
	}
	s.writeCart(w, r, user.ID, http.StatusOK)
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCart, rbac.ActionDelete, true)
	if !ok {
		return
	}
	if err := s.db.Queries().ClearCart(r.Context(), user.ID); err != nil {
		internalError(w, r, "Failed to clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, userID uuid.UUID, status int) {
	lines, err := s.db.Queries().GetCart(r.Context(), userID)
	if err != nil {
		internalError(w, r, "Failed to load cart", err)
		return
	}
	writeJSON(w, status, toCartResponse(lines, s.cfg.Checkout.Currency))
}
