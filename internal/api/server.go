package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/checkout"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/middleware"
	"github.com/vendora/vendora-backend/internal/notifications"
	"github.com/vendora/vendora-backend/internal/rbac"
)

// MediaStorage is the object store behind product images.
type MediaStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PermissionInvalidator drops cached permission rows after a role write.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, roleID uuid.UUID) error
}

type StatusMailer interface {
	OrderStatusChanged(o notifications.OrderEmail)
}

type Deps struct {
	DB            *database.Database
	Authorizer    *rbac.Authorizer
	Permissions   PermissionInvalidator
	AuthService   *auth.AuthService
	Authenticator *auth.Authenticator
	Checkout      *checkout.Service
	Mailer        StatusMailer
	Media         MediaStorage
	Audit         *audit.Logger
	Redis         *redis.Client
	Docs          http.Handler
	Config        *config.Config
}

type Server struct {
	db            *database.Database
	authz         *rbac.Authorizer
	permissions   PermissionInvalidator
	authService   *auth.AuthService
	authenticator *auth.Authenticator
	checkout      *checkout.Service
	mailer        StatusMailer
	media         MediaStorage
	audit         *audit.Logger
	redis         *redis.Client
	docs          http.Handler
	validate      *validator.Validate
	cfg           *config.Config
}

func NewServer(d Deps) *Server {
	return &Server{
		db:            d.DB,
		authz:         d.Authorizer,
		permissions:   d.Permissions,
		authService:   d.AuthService,
		authenticator: d.Authenticator,
		checkout:      d.Checkout,
		mailer:        d.Mailer,
		media:         d.Media,
		audit:         d.Audit,
		redis:         d.Redis,
		docs:          d.Docs,
		validate:      newValidator(),
		cfg:           d.Config,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestContext)
	r.Use(middleware.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecureHeaders(&s.cfg.Server))
	r.Use(middleware.NewCORSHandler(&s.cfg.CORS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, NotFound("Route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, NewError(http.StatusMethodNotAllowed, CodeValidationError, "Method not allowed"))
	})

	r.Get("/health", s.Health)
	r.Get("/ready", s.Ready)
	if s.docs != nil {
		r.Mount("/swagger", s.docs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(s.cfg.Auth.RateLimit, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, RateLimited())
			}))
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
			r.Post("/refresh", s.Refresh)
			r.Post("/logout", s.Logout)
			r.With(s.requireAuth).Get("/me", s.Me)
		})

		// storefront catalog is public
		r.Get("/products", s.ListProducts)
		r.Get("/products/{slug}", s.GetProduct)
		r.Get("/categories", s.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", s.GetCart)
				r.Delete("/", s.ClearCart)
				r.Post("/items", s.AddCartItem)
				r.Put("/items/{productID}", s.UpdateCartItem)
				r.Delete("/items/{productID}", s.RemoveCartItem)
			})

			r.Post("/checkout", s.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", s.ListOrders)
				r.Get("/{id}", s.GetOrder)
				r.Patch("/{id}/status", s.UpdateOrderStatus)
			})

			r.Get("/customers/{id}", s.GetCustomer)
			r.Patch("/customers/{id}", s.UpdateCustomer)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/products", s.AdminListProducts)
				r.Post("/products", s.CreateProduct)
				r.Put("/products/{id}", s.UpdateProduct)
				r.Delete("/products/{id}", s.DeleteProduct)
				r.Post("/categories", s.CreateCategory)
				r.Delete("/categories/{id}", s.DeleteCategory)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", s.ListRoles)
				r.Post("/", s.CreateRole)
				r.Get("/{id}", s.GetRole)
				r.Delete("/{id}", s.DeleteRole)
				r.Patch("/{id}/permissions/{resource}", s.UpdatePermission)
			})

			r.Get("/users", s.ListUsers)
			r.Put("/users/{id}/role", s.AssignRole)

			r.Route("/media", func(r chi.Router) {
				r.Get("/", s.ListMedia)
				r.Post("/", s.UploadMedia)
				r.Delete("/{id}", s.DeleteMedia)
			})

			r.Get("/audit-logs", s.ListAuditLogs)
		})
	})

	return r
}
