package middleware

import (
	"net/http"

	"cartengine/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがVENDORかどうかを確認します。

func VendorRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(model.Role)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//BUYERは拒否、VENDORだけ許可
			if role != model.RoleVendor {
				return c.JSON(http.StatusForbidden, errorJSON("vendor only"))
			}

			return next(c)
		}
	}
}
