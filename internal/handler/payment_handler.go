package handler

import (
	"net/http"

	"cartengine/internal/config"
	"cartengine/internal/middleware"
	"cartengine/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type ConfirmPaymentRequest struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	Signature        string `json:"signature"`
}

type FailPaymentRequest struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	Reason         string `json:"reason"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/confirm", h.confirm)
	g.POST("/fail", h.fail)
}

func (h *PaymentHandler) confirm(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ConfirmPayment(c.Request().Context(), userID, usecase.ConfirmPaymentInput{
		GatewayPaymentID: req.GatewayPaymentID,
		GatewayOrderID:   req.GatewayOrderID,
		Signature:        req.Signature,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) fail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req FailPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.FailPayment(c.Request().Context(), userID, usecase.FailPaymentInput{
		GatewayOrderID: req.GatewayOrderID,
		Reason:         req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
