package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/queue"
	"github.com/vendora/vendora-backend/internal/rbac"
	"github.com/vendora/vendora-backend/internal/testutil"
)

func addToCart(t *testing.T, env *testEnv, user *testutil.TestUser, p database.Product, qty int) *testutil.Response {
	t.Helper()
	return env.do(testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/cart/items",
		Body:   map[string]interface{}{"product_id": p.ID, "quantity": qty},
		Token:  env.token(user),
	})
}

func checkoutCart(t *testing.T, env *testEnv, user *testutil.TestUser, body interface{}) *testutil.Response {
	t.Helper()
	return env.do(testutil.Request{Method: http.MethodPost, Path: "/api/v1/checkout", Body: body, Token: env.token(user)})
}

func stockOf(t *testing.T, env *testEnv, p database.Product) int32 {
	t.Helper()
	fresh, err := env.db.Queries().GetProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	return fresh.Stock
}

func TestServer_Cart(t *testing.T) {
	env := newTestEnv(t)
	customer := env.db.NewUser(t).Create()
	mug := env.db.NewProduct(t).WithName("Mug").WithPrice(1200).WithStock(5).Create()
	hidden := env.db.NewProduct(t).Inactive().Create()

	t.Run("add increments and totals", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, addToCart(t, env, customer, mug, 2).Code)
		resp := addToCart(t, env, customer, mug, 1)

		require.Equal(t, http.StatusCreated, resp.Code)
		items := resp.Body["items"].([]interface{})
		require.Len(t, items, 1)
		assert.EqualValues(t, 3, items[0].(map[string]interface{})["quantity"])
		assert.EqualValues(t, 3600, resp.Body["total_cents"])
	})

	t.Run("more than the shelf holds is refused and not stored", func(t *testing.T) {
		resp := addToCart(t, env, customer, mug, 10)
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, CodeInsufficientStock, resp.ErrorCode())

		cart := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/cart", Token: env.token(customer)})
		assert.EqualValues(t, 3, cart.Body["items"].([]interface{})[0].(map[string]interface{})["quantity"])
	})

	t.Run("inactive product", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, addToCart(t, env, customer, hidden, 1).Code)
	})

	t.Run("zero quantity", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, addToCart(t, env, customer, mug, 0).Code)
	})

	t.Run("update beyond the shelf is refused", func(t *testing.T) {
		upd := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/cart/items/" + mug.ID.String(),
			Body:   map[string]int{"quantity": 1000},
			Token:  env.token(customer),
		})
		assert.Equal(t, http.StatusConflict, upd.Code)
		assert.Equal(t, CodeInsufficientStock, upd.ErrorCode())

		cart := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/cart", Token: env.token(customer)})
		assert.EqualValues(t, 3, cart.Body["items"].([]interface{})[0].(map[string]interface{})["quantity"])
	})

	t.Run("update of an inactive product", func(t *testing.T) {
		upd := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/cart/items/" + hidden.ID.String(),
			Body:   map[string]int{"quantity": 1},
			Token:  env.token(customer),
		})
		assert.Equal(t, http.StatusNotFound, upd.Code)
	})

	t.Run("update and remove", func(t *testing.T) {
		upd := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/cart/items/" + mug.ID.String(),
			Body:   map[string]int{"quantity": 1},
			Token:  env.token(customer),
		})
		require.Equal(t, http.StatusOK, upd.Code)
		assert.EqualValues(t, 1200, upd.Body["total_cents"])

		del := env.do(testutil.Request{Method: http.MethodDelete, Path: "/api/v1/cart/items/" + mug.ID.String(), Token: env.token(customer)})
		require.Equal(t, http.StatusOK, del.Code)
		assert.Empty(t, del.Body["items"])
	})

	t.Run("staff has no cart permission", func(t *testing.T) {
		staff := env.db.NewUser(t).AsStaff().Create()
		assert.Equal(t, http.StatusForbidden, addToCart(t, env, staff, mug, 1).Code)
	})
}

func TestServer_Checkout(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creates a pending order, takes stock and clears the cart", func(t *testing.T) {
		customer := env.db.NewUser(t).Create()
		lamp := env.db.NewProduct(t).WithPrice(4500).WithStock(4).Create()
		bulb := env.db.NewProduct(t).WithPrice(300).WithStock(20).Create()
		addToCart(t, env, customer, lamp, 2)
		addToCart(t, env, customer, bulb, 5)

		before := time.Now()
		resp := checkoutCart(t, env, customer, map[string]string{"return_url": "https://shop.example.com/thanks"})

		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "pending", resp.Body["status"])
		assert.Equal(t, customer.ID.String(), resp.Body["customer_id"])
		assert.EqualValues(t, 2*4500+5*300, resp.Body["total_cents"])
		assert.Len(t, resp.Body["items"], 2)

		expires, err := time.Parse(time.RFC3339Nano, resp.Body["expires_at"].(string))
		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(30*time.Minute), expires, time.Minute)

		assert.EqualValues(t, 2, stockOf(t, env, lamp))
		assert.EqualValues(t, 15, stockOf(t, env, bulb))

		cart := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/cart", Token: env.token(customer)})
		assert.Empty(t, cart.Body["items"])

		assert.EqualValues(t, 1, env.auditCount(rbac.ResourceOrder))

		tasks := env.queue.PendingTasks("critical")
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TypeEmailDelivery, tasks[0].Type)
	})

	t.Run("empty cart", func(t *testing.T) {
		customer := env.db.NewUser(t).Create()
		resp := checkoutCart(t, env, customer, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("return url outside the whitelist", func(t *testing.T) {
		customer := env.db.NewUser(t).Create()
		addToCart(t, env, customer, env.db.NewProduct(t).Create(), 1)

		resp := checkoutCart(t, env, customer, map[string]string{"return_url": "https://evil.example.net/phish"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, CodeValidationError, resp.ErrorCode())
	})

	t.Run("stock gone by checkout time", func(t *testing.T) {
		customer := env.db.NewUser(t).Create()
		scarce := env.db.NewProduct(t).WithName("Last One").WithStock(3).Create()
		addToCart(t, env, customer, scarce, 3)

		_, err := env.db.Pool().Exec(context.Background(), `UPDATE products SET stock = 1 WHERE id = $1`, scarce.ID)
		require.NoError(t, err)

		resp := checkoutCart(t, env, customer, nil)
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, CodeInsufficientStock, resp.ErrorCode())
		ctx := resp.Body["error"].(map[string]interface{})["context"].(map[string]interface{})
		assert.Equal(t, "Last One", ctx["product_name"])
		assert.EqualValues(t, 1, ctx["available"])

		assert.EqualValues(t, 1, stockOf(t, env, scarce), "failed checkout must not take stock")
	})
}

func TestServer_Orders(t *testing.T) {
	env := newTestEnv(t)
	staff := env.db.NewUser(t).AsStaff().Create()
	alice := env.db.NewUser(t).Create()
	bob := env.db.NewUser(t).Create()
	kettle := env.db.NewProduct(t).WithStock(10).Create()

	place := func(u *testutil.TestUser, qty int) string {
		addToCart(t, env, u, kettle, qty)
		resp := checkoutCart(t, env, u, nil)
		require.Equal(t, http.StatusCreated, resp.Code)
		return resp.Body["id"].(string)
	}
	aliceOrder := place(alice, 2)
	bobOrder := place(bob, 3)

	t.Run("customers list only their own orders", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/orders", Token: env.token(alice)})
		require.Equal(t, http.StatusOK, resp.Code)
		require.Len(t, resp.List(), 1)
		assert.Equal(t, aliceOrder, resp.List()[0].(map[string]interface{})["id"])
	})

	t.Run("staff lists everything", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/orders?status=pending", Token: env.token(staff)})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.List(), 2)
	})

	t.Run("foreign order looks missing", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/orders/" + bobOrder, Token: env.token(alice)})
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, CodeResourceNotFound, resp.ErrorCode())

		own := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/orders/" + aliceOrder, Token: env.token(alice)})
		assert.Equal(t, http.StatusOK, own.Code)
	})

	setStatus := func(u *testutil.TestUser, id, status string) *testutil.Response {
		return env.do(testutil.Request{
			Method: http.MethodPatch,
			Path:   "/api/v1/orders/" + id + "/status",
			Body:   map[string]string{"status": status},
			Token:  env.token(u),
		})
	}

	t.Run("no order permission is refused before lookup", func(t *testing.T) {
		nobody := env.db.NewUser(t).WithRole(env.db.NewRole(t).Create().ID).Create()
		for _, id := range []string{bobOrder, uuid.NewString()} {
			get := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/orders/" + id, Token: env.token(nobody)})
			assert.Equal(t, http.StatusForbidden, get.Code)
			assert.Equal(t, http.StatusForbidden, setStatus(nobody, id, "paid").Code)
		}
	})

	t.Run("customers cannot change status", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, setStatus(alice, aliceOrder, "paid").Code)
	})

	t.Run("valid and invalid transitions", func(t *testing.T) {
		resp := setStatus(staff, aliceOrder, "paid")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "paid", resp.Body["status"])

		skip := setStatus(staff, aliceOrder, "completed")
		assert.Equal(t, http.StatusConflict, skip.Code)

		assert.Equal(t, http.StatusBadRequest, setStatus(staff, aliceOrder, "expired").Code)
	})

	t.Run("cancelling releases stock", func(t *testing.T) {
		assert.EqualValues(t, 5, stockOf(t, env, kettle))

		resp := setStatus(staff, bobOrder, "cancelled")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.EqualValues(t, 8, stockOf(t, env, kettle))

		again := setStatus(staff, bobOrder, "cancelled")
		assert.Equal(t, http.StatusConflict, again.Code)
		assert.EqualValues(t, 8, stockOf(t, env, kettle))
	})
}
