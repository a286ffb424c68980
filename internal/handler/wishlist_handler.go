package handler

import (
	"net/http"

	"cartengine/internal/config"
	"cartengine/internal/domain/variant"
	"cartengine/internal/middleware"
	"cartengine/internal/usecase"

	"github.com/labstack/echo/v4"
)

type WishlistHandler struct {
	uc *usecase.WishlistUsecase
}

func NewWishlistHandler(uc *usecase.WishlistUsecase) *WishlistHandler {
	return &WishlistHandler{uc: uc}
}

type WishlistRequest struct {
	ProductID   int64  `json:"productId"`
	ProductType string `json:"productType"`
}

type MoveToCartRequest struct {
	ProductID   int64   `json:"productId"`
	ProductType string  `json:"productType"`
	Size        *string `json:"size"`
	Ram         *string `json:"ram"`
	Storage     *string `json:"storage"`
}

func (h *WishlistHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/wishlist")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.list)
	g.POST("", h.add)
	g.DELETE("", h.remove)
	g.POST("/move", h.move)
	g.POST("/move-all", h.moveAll)
}

func (h *WishlistHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetWishlist(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WishlistHandler) add(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req WishlistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.AddToWishlist(c.Request().Context(), userID, usecase.WishlistInput{
		ProductID:   req.ProductID,
		ProductType: req.ProductType,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "added"})
}

func (h *WishlistHandler) remove(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req WishlistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.RemoveFromWishlist(c.Request().Context(), userID, usecase.WishlistInput{
		ProductID:   req.ProductID,
		ProductType: req.ProductType,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "removed"})
}

func (h *WishlistHandler) move(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req MoveToCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := usecase.MoveToCartInput{ProductID: req.ProductID, ProductType: req.ProductType}
	//どれか指定があれば明示選択として扱う
	if req.Size != nil || req.Ram != nil || req.Storage != nil {
		in.Selection = &variant.Selection{Size: deref(req.Size), Ram: deref(req.Ram), Storage: deref(req.Storage)}
	}

	out, err := h.uc.MoveToCart(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WishlistHandler) moveAll(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.MoveAllToCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
