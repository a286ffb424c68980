package handler

import (
	"errors"
	"net/http"

	"cartengine/internal/domain/model"
	"cartengine/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// 在庫不足のときだけ。読めなければ省略
	Available *int64 `json:"available,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	he, ok := usecase.AsHTTPError(err)
	if !ok {
		//500
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
	}

	res := ErrorResponse{Error: he.Message, Code: errorCode(he)}
	var ise *model.InsufficientStockError
	if errors.As(err, &ise) && ise.Available >= 0 {
		n := ise.Available
		res.Available = &n
	}
	return c.JSON(he.Status, res)
}

func errorCode(he *usecase.HTTPError) string {
	switch {
	case errors.Is(he, model.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(he, model.ErrInvalidSelection):
		return "INVALID_SELECTION"
	case errors.Is(he, model.ErrInvalidQuantity):
		return "INVALID_QUANTITY"
	case errors.Is(he, model.ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case errors.Is(he, model.ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(he, model.ErrEmptyCart):
		return "EMPTY_CART"
	case errors.Is(he, model.ErrInvalidStatus):
		return "INVALID_STATUS"
	case errors.Is(he, model.ErrGatewayUnavailable):
		return "GATEWAY_UNAVAILABLE"
	}

	switch he.Status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusConflict:
		return "CONFLICT"
	}
	return "INTERNAL"
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get("user_id")
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}
