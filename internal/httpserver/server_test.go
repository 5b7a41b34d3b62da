package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AbbasPi/Maller-API/internal/cache"
	"github.com/AbbasPi/Maller-API/internal/metrics"
	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
	"github.com/AbbasPi/Maller-API/internal/service"
	"github.com/AbbasPi/Maller-API/pkg/db"
	"github.com/AbbasPi/Maller-API/pkg/tokens"
	"github.com/AbbasPi/Maller-API/pkg/tokens/tokenstest"
)

var secret = []byte("http-test-secret")

type testEnv struct {
	E    *echo.Echo
	Repo *repo.GormRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	r := &repo.GormRepo{DB: gdb}
	require.NoError(t, r.Migrate(ctx))
	require.NoError(t, r.SeedStatuses(ctx))

	orders, err := service.NewOrderService(ctx, r)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	orders.Metrics = metrics.New("test", reg)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	Register(e, &Deps{
		CartHandler:  &CartHTTP{Svc: &service.CartService{Repo: r}},
		OrderHandler: &OrderHTTP{Svc: orders, Idempotency: cache.NewIdempotencyStore(rdb, time.Hour)},
		JWTSecret:    secret,
		Gatherer:     reg,
	})
	return &testEnv{E: e, Repo: r}
}

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := tokenstest.NewAccessToken(userID.String(), role, time.Now().Add(time.Hour), secret)
	require.NoError(t, err)
	return tok
}

func (env *testEnv) do(t *testing.T, method, path, tok string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedShop(t *testing.T, userID uuid.UUID, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: "kettle", Price: decimal.NewFromInt(5), Quantity: stock, IsActive: true}
	require.NoError(t, env.Repo.DB.Create(&p).Error)
	city := models.City{Name: "Tehran"}
	require.NoError(t, env.Repo.DB.Create(&city).Error)
	require.NoError(t, env.Repo.DB.Create(&models.DeliveryMap{SourceID: city.ID, DestinationID: city.ID, Cost: decimal.NewFromInt(4)}).Error)
	require.NoError(t, env.Repo.DB.Omit("City").Create(&models.Address{UserID: userID, Address1: "1 Azadi", CityID: city.ID}).Error)
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoutes_RequireAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, path := range []string{"/cart", "/orders"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := env.do(t, http.MethodPatch, "/admin/orders/"+uuid.NewString()+"/status", token(t, uuid.New(), "user"), map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestCartFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	userID := uuid.New()
	tok := token(t, userID, "user")
	p := env.seedShop(t, userID, 10)

	rec := env.do(t, http.MethodGet, "/cart", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no items in the cart")

	rec = env.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": p.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": uuid.New(), "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[models.LineItem](t, rec)

	rec = env.do(t, http.MethodPost, "/cart/items/"+item.ID.String()+"/increase", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, decode[map[string]any](t, rec)["quantity"])

	rec = env.do(t, http.MethodGet, "/cart", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart struct {
		Items    []models.LineItem `json:"items"`
		Subtotal decimal.Decimal   `json:"subtotal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Subtotal.Equal(decimal.NewFromInt(15)))

	other := token(t, uuid.New(), "user")
	rec = env.do(t, http.MethodPost, "/cart/items/"+item.ID.String()+"/reduce", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart/items/not-a-uuid/reduce", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/cart/items/"+item.ID.String(), tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	userID := uuid.New()
	tok := token(t, userID, "user")
	p := env.seedShop(t, userID, 10)

	rec := env.do(t, http.MethodPost, "/orders", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty cart")

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": p.ID, "quantity": 2}).Code)
	rec = env.do(t, http.MethodPost, "/orders", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decode[models.Order](t, rec)

	rec = env.do(t, http.MethodPatch, "/orders/"+order.ID.String()+"/note", tok, map[string]string{"note": "ring twice"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ring twice", decode[models.Order](t, rec).Note)

	rec = env.do(t, http.MethodPost, "/orders/checkout", tok, nil, HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[models.Order](t, rec)
	assert.True(t, done.Ordered)
	assert.True(t, done.Shipping.Equal(decimal.NewFromInt(4)))
	assert.True(t, done.Total.Equal(decimal.NewFromInt(10)))

	replay := env.do(t, http.MethodPost, "/orders/checkout", tok, nil, HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, done.ID, decode[models.Order](t, replay).ID)

	rec = env.do(t, http.MethodPost, "/orders/checkout", tok, nil, HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no open order left")
	rec = env.do(t, http.MethodPost, "/orders/checkout", tok, nil, HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusNotFound, rec.Code, "failed attempts release the key")

	var stock models.Product
	require.NoError(t, env.Repo.DB.First(&stock, "id = ?", p.ID).Error)
	assert.Equal(t, 8, stock.Quantity)

	rec = env.do(t, http.MethodGet, "/orders?ordered=true", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Order](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/orders/search?ref="+done.RefCode[:8], tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Order](t, rec), 1)

	rec = env.do(t, http.MethodPatch, "/orders/"+done.ID.String()+"/note", tok, map[string]string{"note": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	admin := token(t, uuid.New(), tokens.RoleAdmin)
	rec = env.do(t, http.MethodPatch, "/admin/orders/"+done.ID.String()+"/status", admin, map[string]string{"status": models.StatusProcessing})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusProcessing, decode[models.Order](t, rec).Status.Title)

	rec = env.do(t, http.MethodPatch, "/admin/orders/"+done.ID.String()+"/status", admin, map[string]string{"status": models.StatusNew})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckout_ConcurrentKeyIsRefused(t *testing.T) {
	t.Parallel()

	h := &OrderHTTP{Idempotency: lockedStore{}}
	req := httptest.NewRequest(http.MethodPost, "/orders/checkout", nil)
	req.Header.Set(HeaderIdempotencyKey, "busy")
	c := echo.New().NewContext(req, httptest.NewRecorder())
	c.Set("user_id", uuid.NewString())

	err := h.Checkout(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusConflict, he.Code)
}

// lockedStore behaves as if another request holds every key.
type lockedStore struct{}

func (lockedStore) TryLock(ctx context.Context, scope, key string) (bool, error) { return false, nil }
func (lockedStore) Release(ctx context.Context, scope, key string) error         { return nil }
func (lockedStore) Remember(ctx context.Context, scope, key, value string) error { return nil }
func (lockedStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	return "", false, nil
}

func TestPromoAndNoRoute(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	userID := uuid.New()
	tok := token(t, userID, "user")

	p := models.Product{Name: "desk", Price: decimal.NewFromInt(8), Quantity: 3, IsActive: true}
	require.NoError(t, env.Repo.DB.Create(&p).Error)
	city := models.City{Name: "Nowhere"}
	require.NoError(t, env.Repo.DB.Create(&city).Error)
	require.NoError(t, env.Repo.DB.Omit("City").Create(&models.Address{UserID: userID, Address1: "x", CityID: city.ID}).Error)
	require.NoError(t, env.Repo.DB.Create(&models.Promo{
		Code: "TEN", Type: models.PromoFixed, Amount: decimal.NewFromInt(10),
		ActiveFrom: time.Now().Add(-time.Hour), ActiveTill: time.Now().Add(time.Hour), IsActive: true,
	}).Error)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/cart", tok, map[string]any{"product_id": p.ID, "quantity": 1}).Code)
	order := decode[models.Order](t, env.do(t, http.MethodPost, "/orders", tok, nil))

	rec := env.do(t, http.MethodPost, "/orders/promo", tok, map[string]any{"order_id": order.ID, "promo_code": "TEN"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.Order](t, rec).Total.IsZero())

	rec = env.do(t, http.MethodPost, "/orders/promo", tok, map[string]any{"order_id": order.ID, "promo_code": "TEN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "promo already used")

	rec = env.do(t, http.MethodPost, "/orders/checkout", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
