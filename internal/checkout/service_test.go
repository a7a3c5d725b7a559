package checkout_test

import (
	"context"
	"errors"
	"flag"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/checkout"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/notifications"
	"github.com/vendora/vendora-backend/internal/testutil"
)

var sharedDB *testutil.TestDatabase

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	sharedDB = testutil.NewTestDatabase(&testing.T{})
	sharedDB.RunMigrations(&testing.T{})

	code := m.Run()

	sharedDB.Cleanup()
	os.Exit(code)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notifications.OrderEmail
}

func (m *recordingMailer) OrderConfirmation(o notifications.OrderEmail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, o)
}

func newService(t *testing.T) (*checkout.Service, *recordingMailer) {
	t.Helper()
	mailer := &recordingMailer{}
	svc, err := checkout.NewService(database.FromPool(sharedDB.Pool()), audit.NewLogger(), mailer, config.Config{
		Checkout: config.CheckoutConfig{AllowedReturnOrigins: []string{"https://shop.example.com"}, Currency: "EUR"},
		Orders:   config.OrdersConfig{PendingTTL: 30 * time.Minute},
	})
	require.NoError(t, err)
	return svc, mailer
}

func loadUser(t *testing.T, u *testutil.TestUser) *database.User {
	t.Helper()
	user, err := sharedDB.Queries().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	return &user
}

func TestService_Checkout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()

	t.Run("snapshots prices and mails a confirmation", func(t *testing.T) {
		sharedDB.CleanupDatabase(t)
		svc, mailer := newService(t)
		customer := sharedDB.NewUser(t).WithName("Jane").Create()
		teapot := sharedDB.NewProduct(t).WithName("Teapot").WithPrice(2500).WithStock(3).Create()
		_, err := sharedDB.Queries().AddToCart(ctx, customer.ID, teapot.ID, 2)
		require.NoError(t, err)

		res, err := svc.Checkout(ctx, loadUser(t, customer), "https://shop.example.com/done")
		require.NoError(t, err)

		assert.Equal(t, database.OrderStatusPending, res.Order.Status)
		assert.Equal(t, "EUR", res.Order.Currency)
		assert.EqualValues(t, 5000, res.Order.TotalCents)
		require.NotNil(t, res.Order.ReturnURL)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "Teapot", res.Items[0].Name)

		// later price changes do not touch the order
		_, err = sharedDB.Pool().Exec(ctx, `UPDATE products SET price_cents = 9999 WHERE id = $1`, teapot.ID)
		require.NoError(t, err)
		items, err := sharedDB.Queries().ListOrderItems(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2500, items[0].UnitPriceCents)

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, customer.Email, mailer.sent[0].To)
	})

	t.Run("inactive product aborts without side effects", func(t *testing.T) {
		sharedDB.CleanupDatabase(t)
		svc, mailer := newService(t)
		customer := sharedDB.NewUser(t).Create()
		p := sharedDB.NewProduct(t).WithStock(5).Create()
		_, err := sharedDB.Queries().AddToCart(ctx, customer.ID, p.ID, 1)
		require.NoError(t, err)
		_, err = sharedDB.Pool().Exec(ctx, `UPDATE products SET active = FALSE WHERE id = $1`, p.ID)
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, loadUser(t, customer), "")

		var stockErr *checkout.StockError
		require.ErrorAs(t, err, &stockErr)
		assert.ErrorIs(t, err, checkout.ErrProductUnavailable)
		assert.Empty(t, mailer.sent)

		cart, err := sharedDB.Queries().GetCart(ctx, customer.ID)
		require.NoError(t, err)
		assert.Len(t, cart, 1, "cart survives a failed checkout")
	})

	t.Run("bad return url is rejected before touching the cart", func(t *testing.T) {
		sharedDB.CleanupDatabase(t)
		svc, _ := newService(t)
		customer := sharedDB.NewUser(t).Create()

		_, err := svc.Checkout(ctx, loadUser(t, customer), "javascript:alert(1)")
		assert.ErrorIs(t, err, checkout.ErrInvalidReturnURL)
	})

	t.Run("concurrent checkouts never oversell", func(t *testing.T) {
		sharedDB.CleanupDatabase(t)
		svc, _ := newService(t)
		last := sharedDB.NewProduct(t).WithStock(1).Create()

		const buyers = 5
		users := make([]*database.User, buyers)
		for i := range users {
			u := sharedDB.NewUser(t).Create()
			_, err := sharedDB.Queries().AddToCart(ctx, u.ID, last.ID, 1)
			require.NoError(t, err)
			users[i] = loadUser(t, u)
		}

		var wg sync.WaitGroup
		errs := make([]error, buyers)
		for i := range users {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Checkout(ctx, users[i], "")
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, checkout.ErrInsufficientStock), err)
		}
		assert.Equal(t, 1, succeeded)

		p, err := sharedDB.Queries().GetProductByID(ctx, last.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 0, p.Stock)
	})
}

func TestQueries_ExpirePendingOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	svc, _ := newService(t)
	q := sharedDB.Queries()

	lamp := sharedDB.NewProduct(t).WithStock(10).Create()
	place := func(qty int32) database.Order {
		u := sharedDB.NewUser(t).Create()
		_, err := q.AddToCart(ctx, u.ID, lamp.ID, qty)
		require.NoError(t, err)
		res, err := svc.Checkout(ctx, loadUser(t, u), "")
		require.NoError(t, err)
		return res.Order
	}

	stale := place(2)
	paid := place(3)
	fresh := place(1)
	_, err := q.UpdateOrderStatus(ctx, paid.ID, database.OrderStatusPaid)
	require.NoError(t, err)

	p, err := q.GetProductByID(ctx, lamp.ID)
	require.NoError(t, err)
	require.EqualValues(t, 4, p.Stock)

	// everything placed so far is past this cutoff; only pending orders move
	_, err = sharedDB.Pool().Exec(ctx, `UPDATE orders SET expires_at = NOW() + INTERVAL '1 hour' WHERE id = $1`, fresh.ID)
	require.NoError(t, err)
	cutoff := time.Now().Add(31 * time.Minute)

	n, err := q.ExpirePendingOrders(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := q.GetOrder(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, database.OrderStatusExpired, got.Status)

	got, err = q.GetOrder(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, database.OrderStatusPaid, got.Status)

	got, err = q.GetOrder(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, database.OrderStatusPending, got.Status)

	p, err = q.GetProductByID(ctx, lamp.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, p.Stock, "stale order's two units are back")

	n, err = q.ExpirePendingOrders(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n, "second run is a no-op")

	assert.False(t, database.OrderStatusExpired.CanTransitionTo(database.OrderStatusPaid))
}
