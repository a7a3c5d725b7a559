package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	RoleID    *uuid.UUID `json:"role_id"`
	RoleName  *string    `json:"role_name"`
	IsOwner   bool       `json:"is_owner"`
	CreatedAt time.Time  `json:"created_at"`
}

func toUserResponse(u database.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		RoleID:    u.RoleID,
		RoleName:  u.RoleName,
		IsOwner:   u.IsOwner,
		CreatedAt: u.CreatedAt,
	}
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type CategoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryResponse(c database.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, CreatedAt: c.CreatedAt}
}

type ProductResponse struct {
	ID          uuid.UUID  `json:"id"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents"`
	Stock       int32      `json:"stock"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toProductResponse(p database.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type CartLineResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int32     `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
	Available      bool      `json:"available"`
}

type CartResponse struct {
	Items      []CartLineResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
	Currency   string             `json:"currency"`
}

func toCartResponse(lines []database.CartLine, currency string) CartResponse {
	resp := CartResponse{Items: make([]CartLineResponse, 0, len(lines)), Currency: currency}
	for _, l := range lines {
		resp.Items = append(resp.Items, CartLineResponse{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Slug:           l.Slug,
			UnitPriceCents: l.PriceCents,
			Quantity:       l.Quantity,
			LineTotalCents: l.LineTotalCents(),
			Available:      l.Active && l.Stock >= l.Quantity,
		})
		resp.TotalCents += l.LineTotalCents()
	}
	return resp
}

type OrderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int32     `json:"quantity"`
}

type OrderResponse struct {
	ID         uuid.UUID            `json:"id"`
	CustomerID uuid.UUID            `json:"customer_id"`
	Status     database.OrderStatus `json:"status"`
	TotalCents int64                `json:"total_cents"`
	Currency   string               `json:"currency"`
	ReturnURL  *string              `json:"return_url,omitempty"`
	ExpiresAt  time.Time            `json:"expires_at"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Items      []OrderItemResponse  `json:"items,omitempty"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		ReturnURL:  o.ReturnURL,
		ExpiresAt:  o.ExpiresAt,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:      it.ProductID,
			Name:           it.Name,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}
	return resp
}

type RoleResponse struct {
	rbac.Role
	Permissions []rbac.Permission `json:"permissions,omitempty"`
}

type MediaResponse struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    *uuid.UUID `json:"product_id"`
	ContentType  string     `json:"content_type"`
	Width        int32      `json:"width"`
	Height       int32      `json:"height"`
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnail_url"`
	UploadedBy   *uuid.UUID `json:"uploaded_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

type AuditLogResponse struct {
	ID        uuid.UUID       `json:"id"`
	ActorID   *uuid.UUID      `json:"actor_id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	EntityID  *uuid.UUID      `json:"entity_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toAuditLogResponse(a database.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:        a.ID,
		ActorID:   a.ActorID,
		Action:    a.Action,
		Resource:  a.Resource,
		EntityID:  a.EntityID,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
