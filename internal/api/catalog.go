package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

type ProductRequest struct {
	CategoryID  *uuid.UUID `json:"category_id"`
	Name        string     `json:"name" validate:"required,max=200"`
	Slug        string     `json:"slug" validate:"required,max=200,slug"`
	Description string     `json:"description" validate:"max=5000"`
	PriceCents  int64      `json:"price_cents" validate:"gte=0"`
	Stock       int32      `json:"stock" validate:"gte=0"`
	Active      *bool      `json:"active"`
}

func (p ProductRequest) params() database.UpsertProductParams {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return database.UpsertProductParams{
		CategoryID:  p.CategoryID,
		Name:        strings.TrimSpace(p.Name),
		Slug:        p.Slug,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Active:      active,
	}
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"required,max=120,slug"`
}

func productFilterFromQuery(r *http.Request) (database.ProductFilter, *ErrorBuilder) {
	limit, offset, errb := paginationFromQuery(r)
	if errb != nil {
		return database.ProductFilter{}, errb
	}
	q := r.URL.Query()
	return database.ProductFilter{
		CategorySlug: q.Get("category"),
		Search:       strings.TrimSpace(q.Get("q")),
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// ListProducts is the storefront listing: active products only.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, errb := productFilterFromQuery(r)
	if errb != nil {
		writeError(w, errb)
		return
	}
	filter.ActiveOnly = true
	s.listProducts(w, r, filter)
}

func (s *Server) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ResourceProduct, rbac.ActionRead, false); !ok {
		return
	}
	filter, errb := productFilterFromQuery(r)
	if errb != nil {
		writeError(w, errb)
		return
	}
	s.listProducts(w, r, filter)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request, filter database.ProductFilter) {
	q := s.db.Queries()
	products, err := q.ListProducts(r.Context(), filter)
	if err != nil {
		internalError(w, r, "Failed to list products", err)
		return
	}
	total, err := q.CountProducts(r.Context(), filter)
	if err != nil {
		internalError(w, r, "Failed to count products", err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(mapSlice(products, toProductResponse), total, filter.Limit, filter.Offset))
}

func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.db.Queries().GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, database.ErrNotFound) || err == nil && !product.Active {
		writeError(w, NotFound("Product"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.db.Queries().ListCategories(r.Context())
	if err != nil {
		internalError(w, r, "Failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cats, toCategoryResponse))
}

func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceProduct, rbac.ActionCreate, false)
	if !ok {
		return
	}
	var req ProductRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var product database.Product
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		if product, err = q.CreateProduct(r.Context(), req.params()); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionCreate,
			Resource: rbac.ResourceProduct,
			EntityID: product.ID,
			Metadata: map[string]any{"slug": product.Slug},
		})
	})
	if errors.Is(err, database.ErrConflict) {
		writeError(w, ConflictErr("Slug is already in use or category does not exist"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceProduct, rbac.ActionUpdate, false)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}
	var req ProductRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var product database.Product
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		if product, err = q.UpdateProduct(r.Context(), id, req.params()); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionUpdate,
			Resource: rbac.ResourceProduct,
			EntityID: product.ID,
			Metadata: map[string]any{"price_cents": product.PriceCents, "stock": product.Stock, "active": product.Active},
		})
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, NotFound("Product"))
	case errors.Is(err, database.ErrConflict):
		writeError(w, ConflictErr("Slug is already in use or category does not exist"))
	case err != nil:
		internalError(w, r, "Failed to update product", err)
	default:
		writeJSON(w, http.StatusOK, toProductResponse(product))
	}
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceProduct, rbac.ActionDelete, false)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		if err := q.DeleteProduct(r.Context(), id); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionDelete,
			Resource: rbac.ResourceProduct,
			EntityID: id,
		})
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, NotFound("Product"))
	case errors.Is(err, database.ErrConflict):
		writeError(w, ConflictErr("Product has orders; deactivate it instead"))
	case err != nil:
		internalError(w, r, "Failed to delete product", err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) CreateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCategory, rbac.ActionCreate, false)
	if !ok {
		return
	}
	var req CategoryRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var cat database.Category
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		if cat, err = q.CreateCategory(r.Context(), strings.TrimSpace(req.Name), req.Slug); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionCreate,
			Resource: rbac.ResourceCategory,
			EntityID: cat.ID,
			Metadata: map[string]any{"slug": cat.Slug},
		})
	})
	if errors.Is(err, database.ErrConflict) {
		writeError(w, ConflictErr("Slug is already in use"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(cat))
}

func (s *Server) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceCategory, rbac.ActionDelete, false)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		if err := q.DeleteCategory(r.Context(), id); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionDelete,
			Resource: rbac.ResourceCategory,
			EntityID: id,
		})
	})
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Category"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
