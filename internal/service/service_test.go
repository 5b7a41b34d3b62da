package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AbbasPi/Maller-API/internal/metrics"
	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
	"github.com/AbbasPi/Maller-API/pkg/db"
)

type sentEvent struct {
	Topic string
	Key   string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		switch ev := e.Event.(type) {
		case CartEvent:
			out = append(out, ev.Type)
		case OrderEvent:
			out = append(out, ev.Type)
		}
	}
	return out
}

type testEnv struct {
	Repo   *repo.GormRepo
	Cart   *CartService
	Orders *OrderService
	Events *recordingPublisher
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

	events := &recordingPublisher{}
	orders, err := NewOrderService(ctx, r)
	require.NoError(t, err)
	orders.Events = events
	orders.Metrics = metrics.New("test", prometheus.NewRegistry())

	return &testEnv{
		Repo:   r,
		Cart:   &CartService{Repo: r, Events: events},
		Orders: orders,
		Events: events,
	}
}

func (e *testEnv) product(t *testing.T, name string, price string, qty int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.RequireFromString(price), Quantity: qty, IsActive: true}
	require.NoError(t, e.Repo.DB.Create(&p).Error)
	return p
}

func (e *testEnv) city(t *testing.T, name string) models.City {
	t.Helper()
	c := models.City{Name: name}
	require.NoError(t, e.Repo.DB.Create(&c).Error)
	return c
}

func (e *testEnv) route(t *testing.T, from, to models.City, cost string) {
	t.Helper()
	require.NoError(t, e.Repo.DB.Create(&models.DeliveryMap{
		SourceID:      from.ID,
		DestinationID: to.ID,
		Cost:          decimal.RequireFromString(cost),
	}).Error)
}

func (e *testEnv) address(t *testing.T, userID uuid.UUID, city models.City) models.Address {
	t.Helper()
	a := models.Address{UserID: userID, Address1: "12 Vali Asr", Phone: "0912", CityID: city.ID}
	require.NoError(t, e.Repo.DB.Omit("City").Create(&a).Error)
	return a
}

func (e *testEnv) promo(t *testing.T, code string, typ models.PromoType, amount string, mutate ...func(*models.Promo)) models.Promo {
	t.Helper()
	now := time.Now()
	p := models.Promo{
		Code:       code,
		Type:       typ,
		Amount:     decimal.RequireFromString(amount),
		ActiveFrom: now.Add(-time.Hour),
		ActiveTill: now.Add(time.Hour),
		IsActive:   true,
	}
	for _, m := range mutate {
		m(&p)
	}
	require.NoError(t, e.Repo.DB.Create(&p).Error)
	return p
}

func (e *testEnv) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.Repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

// fill adds products to the cart and reconciles them into the open order.
func (e *testEnv) fill(t *testing.T, userID uuid.UUID, lines map[uuid.UUID]int) *models.Order {
	t.Helper()
	ctx := context.Background()
	for id, qty := range lines {
		_, err := e.Cart.AddItem(ctx, AddItemCommand{UserID: userID, ProductID: id, Quantity: qty})
		require.NoError(t, err)
	}
	o, err := e.Orders.Reconcile(ctx, userID)
	require.NoError(t, err)
	return o
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
