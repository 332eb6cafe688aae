package server

import (
	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Deps struct {
	ProductH *handler.ProductHandler
	CartH    *handler.CartHandler
	Issuer   *middleware.SessionIssuer
}

func RegisterRoutes(e *echo.Echo, log *zap.Logger, d Deps) {
	d.ProductH.RegisterRoutes(e)
	d.CartH.RegisterRoutes(e, middleware.CartSession(d.Issuer, log))
}
