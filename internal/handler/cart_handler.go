package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const eventsKeepAlive = 25 * time.Second

// /cartのHTTP
type CartHandler struct {
	uc       *usecase.CartUsecase
	sessions *usecase.CartSessions
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, sessions *usecase.CartSessions) *CartHandler {
	return &CartHandler{uc: uc, sessions: sessions}
}

// productは商品参照（ID文字列 or CMSの参照オブジェクト）
type AddCartItemRequest struct {
	Product   model.ProductRef `json:"product"`
	ProductID string           `json:"product_id"`
	Quantity  int64            `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int64 `json:"quantity"`
}

// /cart 以下を登録（セッションとカートはmiddlewareで解決）
func (h *CartHandler) RegisterRoutes(e *echo.Echo, session echo.MiddlewareFunc) {
	g := e.Group("/cart", session, middleware.WithCart(h.sessions))

	g.GET("", h.getCart)
	g.GET("/count", h.count)
	g.GET("/events", h.events)
	g.DELETE("", h.clear)

	g.POST("/items", h.addItem)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)
	g.POST("/items/:id/increment", h.increment)
	g.POST("/items/:id/decrement", h.decrement)

	g.POST("/toggle", h.toggle)
	g.POST("/open", h.open)
	g.POST("/close", h.close)
}

func (h *CartHandler) getCart(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.GetCart(cart))
}

func (h *CartHandler) count(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Count(cart))
}

func (h *CartHandler) addItem(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}

	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	ref := req.Product
	if ref.IsEmpty() {
		ref = model.RefByID(req.ProductID)
	}

	out, err := h.uc.AddToCart(c.Request().Context(), cart, usecase.AddToCartInput{
		Reference: ref,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out := h.uc.UpdateQuantity(c.Request().Context(), cart, c.Param("id"), *req.Quantity)
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) increment(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Increment(c.Request().Context(), cart, c.Param("id")))
}

func (h *CartHandler) decrement(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Decrement(c.Request().Context(), cart, c.Param("id")))
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.RemoveItem(c.Request().Context(), cart, c.Param("id")))
}

func (h *CartHandler) clear(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Clear(c.Request().Context(), cart))
}

func (h *CartHandler) toggle(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Toggle(cart))
}

func (h *CartHandler) open(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Open(cart))
}

func (h *CartHandler) close(c echo.Context) error {
	cart, ok := middleware.CartFromContext(c)
	if !ok {
		return noCart(c)
	}
	return c.JSON(http.StatusOK, h.uc.Close(cart))
}

// 変更のたびにスナップショットを送る（text/event-stream）。
// 送信が追いつかない場合は最新のものだけ送る。
// 接続中はセッションのEngineを手放さない。
func (h *CartHandler) events(c echo.Context) error {
	sid, ok := middleware.SessionIDFromContext(c)
	if !ok {
		return noCart(c)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates := make(chan model.CartSnapshot, 1)
	cart, unsubscribe := h.sessions.Subscribe(c.Request().Context(), sid, func(s model.CartSnapshot) {
		select {
		case updates <- s:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := writeCartEvent(w, cart.Snapshot()); err != nil {
		return nil
	}

	ticker := time.NewTicker(eventsKeepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-updates:
			if err := writeCartEvent(w, s); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeCartEvent(w *echo.Response, s model.CartSnapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", b); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func noCart(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "cart unavailable"})
}
