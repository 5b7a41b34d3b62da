package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	middleware "github.com/AbbasPi/Maller-API/pkg/middleware/auth"
	"github.com/AbbasPi/Maller-API/pkg/tokens"
)

// ReadinessCheck reports whether a backing store is reachable.
type ReadinessCheck func(ctx context.Context) error

type Deps struct {
	CartHandler  *CartHTTP
	OrderHandler *OrderHTTP
	JWTSecret    []byte
	// SecureCookies marks refreshed auth cookies Secure.
	SecureCookies bool
	AuthClient    middleware.TokenRefresher
	Gatherer      prometheus.Gatherer
	Ready         []ReadinessCheck
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		for _, check := range d.Ready {
			if err := check(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient, tokens.Cookies{Path: "/", Secure: d.SecureCookies})

	cart := e.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.ViewCart)
	cart.POST("", d.CartHandler.AddItem)
	cart.POST("/items/:id/increase", d.CartHandler.Increase)
	cart.POST("/items/:id/reduce", d.CartHandler.Reduce)
	cart.DELETE("/items/:id", d.CartHandler.RemoveItem)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.POST("", d.OrderHandler.Reconcile)
	orders.GET("/search", d.OrderHandler.SearchOrders)
	orders.POST("/checkout", d.OrderHandler.Checkout)
	orders.POST("/promo", d.OrderHandler.ApplyPromo)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PATCH("/:id/address", d.OrderHandler.SetAddress)
	orders.PATCH("/:id/note", d.OrderHandler.SetNote)

	admin := e.Group("/admin", authMW.RequireAdmin)
	admin.PATCH("/orders/:id/status", d.OrderHandler.SetStatus)
}
