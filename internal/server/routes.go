package server

import (
	"net/http"

	"cartengine/internal/config"
	"cartengine/internal/handler"
	"cartengine/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type Handlers struct {
	Cart       *handler.CartHandler
	Wishlist   *handler.WishlistHandler
	Order      *handler.OrderHandler
	Payment    *handler.PaymentHandler
	AdminOrder *handler.AdminOrderHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, g prometheus.Gatherer) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(g)))

	h.Cart.RegisterRoutes(e, cfg)
	h.Wishlist.RegisterRoutes(e, cfg)
	h.Order.RegisterRoutes(e, cfg)
	h.Payment.RegisterRoutes(e, cfg)
	h.AdminOrder.RegisterRoutes(e, cfg)
}
