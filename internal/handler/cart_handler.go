package handler

import (
	"net/http"

	"cartengine/internal/config"
	"cartengine/internal/domain/variant"
	"cartengine/internal/middleware"
	"cartengine/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID   int64  `json:"productId"`
	ProductType string `json:"productType"`
	Quantity    int64  `json:"quantity"`
	Size        string `json:"size"`
	Ram         string `json:"ram"`
	Storage     string `json:"storage"`
}

type UpdateCartRequest struct {
	ProductID   int64  `json:"productId"`
	ProductType string `json:"productType"`
	Variant     string `json:"variant"`
	Quantity    int64  `json:"quantity"`
}

type RemoveCartRequest struct {
	ProductID   int64  `json:"productId"`
	ProductType string `json:"productType"`
	Variant     string `json:"variant"`
}

// /cart を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.PATCH("", h.updateQuantity)
	g.DELETE("", h.removeLine)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddToCart(c.Request().Context(), userID, usecase.AddCartInput{
		ProductID:   req.ProductID,
		ProductType: req.ProductType,
		Quantity:    req.Quantity,
		Selection:   variant.Selection{Size: req.Size, Ram: req.Ram, Storage: req.Storage},
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateQuantity(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), userID, usecase.UpdateCartInput{
		ProductID:   req.ProductID,
		ProductType: req.ProductType,
		VariantKey:  req.Variant,
		Quantity:    req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeLine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req RemoveCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.RemoveFromCart(c.Request().Context(), userID, usecase.RemoveCartInput{
		ProductID:   req.ProductID,
		ProductType: req.ProductType,
		VariantKey:  req.Variant,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
