package middleware

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const CtxCartKey = "cart" // usecase.Cart

// セッションのカートをcontextに載せる。CartSessionの後に置く。
func WithCart(sessions *usecase.CartSessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, ok := SessionIDFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("missing session"))
			}

			c.Set(CtxCartKey, usecase.Cart(sessions.Get(c.Request().Context(), sid)))
			return next(c)
		}
	}
}

func CartFromContext(c echo.Context) (usecase.Cart, bool) {
	cart, ok := c.Get(CtxCartKey).(usecase.Cart)
	return cart, ok
}
