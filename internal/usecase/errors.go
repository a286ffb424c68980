package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
)

// HTTPError はハンドラでそのままレスポンスにできるエラー。
// Err に元のエラーを持つので errors.Is / errors.As も使える。
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func wrapHTTPError(status int, message string, err error) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Err:     err,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// EventPublisher は注文イベントの送信先（Kafka など）
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// ドメインエラーをステータスに対応づける。
// 既に HTTPError ならそのまま返す。
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		return wrapHTTPError(http.StatusConflict, "insufficient stock", err)
	case errors.Is(err, model.ErrInvalidSelection):
		return wrapHTTPError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, model.ErrInvalidQuantity):
		return wrapHTTPError(http.StatusBadRequest, "quantity must be at least 1", err)
	case errors.Is(err, model.ErrInvalidStatus):
		return wrapHTTPError(http.StatusBadRequest, "invalid status", err)
	case errors.Is(err, model.ErrEmptyCart):
		return wrapHTTPError(http.StatusBadRequest, "cart empty", err)
	case errors.Is(err, model.ErrIllegalTransition):
		// 遷移表の中身は返さない
		return wrapHTTPError(http.StatusConflict, "status change not allowed", err)
	case errors.Is(err, model.ErrInvalidSignature):
		return wrapHTTPError(http.StatusBadRequest, "invalid signature", err)
	case errors.Is(err, model.ErrProductNotFound):
		return wrapHTTPError(http.StatusNotFound, "product not found", err)
	case errors.Is(err, model.ErrCartLineNotFound):
		return wrapHTTPError(http.StatusNotFound, "cart line not found", err)
	case errors.Is(err, model.ErrOrderNotFound), errors.Is(err, repo.ErrNotFound):
		return wrapHTTPError(http.StatusNotFound, "not found", err)
	case errors.Is(err, model.ErrGatewayUnavailable):
		return wrapHTTPError(http.StatusBadGateway, "payment gateway unavailable", err)
	}
	return wrapHTTPError(http.StatusInternalServerError, "internal error", err)
}
