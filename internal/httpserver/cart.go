package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AbbasPi/Maller-API/internal/service"
	"github.com/AbbasPi/Maller-API/internal/transport"
	"github.com/AbbasPi/Maller-API/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) ViewCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("view_cart_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Svc.ViewCart(ctx, userID)
	if err != nil {
		return fail(l, "view_cart_error", err)
	}
	if len(items) == 0 {
		l.Info("view_cart_empty", "status", 404)
		return echo.NewHTTPError(http.StatusNotFound, "no items in the cart")
	}

	return c.JSON(http.StatusOK, transport.CartResponse{Items: items, Subtotal: service.Subtotal(items)})
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("add_item_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.AddItem(ctx, service.AddItemCommand{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "item_id", item.ID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) Increase(c echo.Context) error {
	return h.changeQuantity(c, 1, "cart.increase")
}

func (h *CartHTTP) Reduce(c echo.Context) error {
	return h.changeQuantity(c, -1, "cart.reduce")
}

func (h *CartHTTP) changeQuantity(c echo.Context, delta int, handler string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	userID, err := GetID(c)
	if err != nil {
		l.Warn("change_quantity_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	item, deleted, err := h.Svc.ChangeQuantity(ctx, userID, itemID, delta)
	if err != nil {
		return fail(l, "change_quantity_error", err)
	}

	return c.JSON(http.StatusOK, transport.ChangeQuantityResponse{
		ItemID:   item.ID,
		Deleted:  deleted,
		Quantity: item.Quantity,
	})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("remove_item_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Svc.RemoveItem(ctx, userID, itemID); err != nil {
		return fail(l, "remove_item_error", err)
	}

	l.Info("remove_item_success", "item_id", itemID)
	return c.NoContent(http.StatusNoContent)
}
