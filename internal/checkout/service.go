package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/notifications"
	"github.com/vendora/vendora-backend/internal/rbac"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// StockError names the cart line that could not be fulfilled.
type StockError struct {
	Err       error
	ProductID uuid.UUID
	Name      string
	Requested int32
	Available int32
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: %s (requested %d, available %d)", e.Err, e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return e.Err
}

type OrderMailer interface {
	OrderConfirmation(o notifications.OrderEmail)
}

type Result struct {
	Order database.Order
	Items []database.OrderItem
}

type Service struct {
	db         *database.Database
	audit      *audit.Logger
	mailer     OrderMailer
	returnURLs *ReturnURLValidator
	pendingTTL time.Duration
	currency   string
	now        func() time.Time
}

func NewService(db *database.Database, auditLog *audit.Logger, mailer OrderMailer, cfg config.Config) (*Service, error) {
	validator, err := NewReturnURLValidator(cfg.Checkout.AllowedReturnOrigins)
	if err != nil {
		return nil, err
	}
	return &Service{
		db:         db,
		audit:      auditLog,
		mailer:     mailer,
		returnURLs: validator,
		pendingTTL: cfg.Orders.PendingTTL,
		currency:   cfg.Checkout.Currency,
		now:        time.Now,
	}, nil
}

// Checkout turns the cart of customer into a pending order. The order is
// always attributed to customer, never to a caller-supplied id.
func (s *Service) Checkout(ctx context.Context, customer *database.User, returnURL string) (Result, error) {
	validURL, err := s.returnURLs.Validate(returnURL)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = s.db.InTx(ctx, func(q *database.Queries) error {
		lines, err := q.GetCart(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}

		locked, err := q.LockProductsForCheckout(ctx, ids)
		if err != nil {
			return fmt.Errorf("locking products: %w", err)
		}

		var total int64
		for _, l := range lines {
			p, ok := locked[l.ProductID]
			if !ok || !p.Active {
				return &StockError{Err: ErrProductUnavailable, ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity}
			}
			if p.Stock < l.Quantity {
				return &StockError{Err: ErrInsufficientStock, ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Stock}
			}
			total += p.PriceCents * int64(l.Quantity)
		}

		var urlPtr *string
		if validURL != "" {
			urlPtr = &validURL
		}
		order, err := q.CreateOrder(ctx, database.CreateOrderParams{
			CustomerID: customer.ID,
			TotalCents: total,
			Currency:   s.currency,
			ReturnURL:  urlPtr,
			ExpiresAt:  s.now().Add(s.pendingTTL),
		})
		if err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		items := make([]database.OrderItem, 0, len(lines))
		for _, l := range lines {
			p := locked[l.ProductID]
			if err := q.DecrementStock(ctx, p.ID, l.Quantity); err != nil {
				return fmt.Errorf("decrementing stock of %s: %w", p.ID, err)
			}
			item, err := q.CreateOrderItem(ctx, database.OrderItem{
				OrderID:        order.ID,
				ProductID:      p.ID,
				Name:           p.Name,
				UnitPriceCents: p.PriceCents,
				Quantity:       l.Quantity,
			})
			if err != nil {
				return fmt.Errorf("creating order item: %w", err)
			}
			items = append(items, item)
		}

		if err := q.ClearCart(ctx, customer.ID); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		if err := s.audit.Record(ctx, q, audit.Entry{
			ActorID:  customer.ID,
			Action:   audit.ActionCheckout,
			Resource: rbac.ResourceOrder,
			EntityID: order.ID,
			Metadata: map[string]any{"total_cents": total, "items": len(items)},
		}); err != nil {
			return err
		}

		res = Result{Order: order, Items: items}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.mailer.OrderConfirmation(OrderEmail(customer, res.Order, res.Items))
	return res, nil
}

// OrderEmail builds the email view of an order.
func OrderEmail(customer *database.User, order database.Order, items []database.OrderItem) notifications.OrderEmail {
	out := notifications.OrderEmail{
		To:           customer.Email,
		CustomerName: customer.Name,
		OrderRef:     notifications.OrderRef(order),
		Status:       order.Status,
		TotalCents:   order.TotalCents,
		Currency:     order.Currency,
		ExpiresAt:    order.ExpiresAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, notifications.OrderEmailItem{
			Name:           it.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return out
}
