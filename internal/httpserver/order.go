package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/AbbasPi/Maller-API/internal/service"
	"github.com/AbbasPi/Maller-API/internal/transport"
	"github.com/AbbasPi/Maller-API/pkg/logging"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type OrderHTTP struct {
	Svc         *service.OrderService
	Idempotency IdempotencyStore
}

func (h *OrderHTTP) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.reconcile")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("reconcile_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	order, err := h.Svc.Reconcile(ctx, userID)
	if err != nil {
		return fail(l, "reconcile_error", err)
	}

	l.Info("reconcile_success", "order_id", order.ID, "items", len(order.Items))
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("list_orders_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var q service.ListOrdersQuery
	if v := c.QueryParam("ordered"); v != "" {
		q.IncludeFinalized, err = strconv.ParseBool(v)
		if err != nil {
			l.Warn("list_orders_error", "status", 400, "reason", "invalid ordered", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ordered")
		}
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.Size, _ = strconv.Atoi(c.QueryParam("size"))

	orders, err := h.Svc.ListOrders(ctx, userID, q)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, userID, orderID)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) SearchOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.search")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("search_orders_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.SearchByRef(ctx, userID, c.QueryParam("ref"))
	if err != nil {
		return fail(l, "search_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

// Checkout finalizes the open order. With an Idempotency-Key header a
// replay returns the first successful response and a concurrent duplicate
// is refused.
func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("checkout_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	if key == "" || h.Idempotency == nil {
		order, err := h.Svc.Checkout(ctx, userID)
		if err != nil {
			return fail(l, "checkout_error", err)
		}
		return c.JSON(http.StatusOK, order)
	}

	scope := "checkout:" + userID.String()
	if body, found, err := h.Idempotency.Recall(ctx, scope, key); err != nil {
		return fail(l, "checkout_error", err)
	} else if found {
		l.Info("checkout_replayed", "key", key)
		return c.JSONBlob(http.StatusOK, []byte(body))
	}

	locked, err := h.Idempotency.TryLock(ctx, scope, key)
	if err != nil {
		return fail(l, "checkout_error", err)
	}
	if !locked {
		l.Warn("checkout_error", "status", 409, "reason", "in progress", "key", key)
		return echo.NewHTTPError(http.StatusConflict, "checkout already in progress")
	}

	order, err := h.Svc.Checkout(ctx, userID)
	if err != nil {
		if rErr := h.Idempotency.Release(context.WithoutCancel(ctx), scope, key); rErr != nil {
			l.Warn("idempotency_release_failed", "key", key, "error", rErr)
		}
		return fail(l, "checkout_error", err)
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fail(l, "checkout_error", err)
	}
	if err := h.Idempotency.Remember(context.WithoutCancel(ctx), scope, key, string(body)); err != nil {
		l.Warn("idempotency_remember_failed", "key", key, "error", err)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (h *OrderHTTP) ApplyPromo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.apply_promo")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("apply_promo_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.ApplyPromoRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("apply_promo_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.ApplyPromo(ctx, userID, req.OrderID, req.PromoCode)
	if err != nil {
		return fail(l, "apply_promo_error", err)
	}

	l.Info("apply_promo_success", "order_id", order.ID, "code", req.PromoCode)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) SetAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.set_address")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("set_address_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.SetAddressRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_address_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.SetAddress(ctx, userID, orderID, req.AddressID)
	if err != nil {
		return fail(l, "set_address_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) SetNote(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.set_note")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("set_note_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.SetNoteRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_note_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.SetNote(ctx, userID, orderID, req.Note)
	if err != nil {
		return fail(l, "set_note_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) SetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_status")

	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transport.SetStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.SetStatus(ctx, orderID, req.Status)
	if err != nil {
		return fail(l, "set_status_error", err)
	}

	l.Info("set_status_success", "order_id", order.ID, "new_status", order.Status.Title)
	return c.JSON(http.StatusOK, order)
}
