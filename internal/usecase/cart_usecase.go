package usecase

import (
	"context"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/validator"
)

// 参照を商品に解決できるもの
type ProductResolver interface {
	ResolveReference(ctx context.Context, ref model.ProductRef) (model.Product, error)
}

// CartUsecase は /cart の操作（Engineを使う側）。
// 状態は持たず、渡されたCartに委ねる。
type CartUsecase struct {
	products ProductResolver
}

func NewCartUsecase(products ProductResolver) *CartUsecase {
	return &CartUsecase{products: products}
}

// POST /cart/items の入力
type AddToCartInput struct {
	Reference model.ProductRef
	Quantity  int64 // 0なら1
}

// GET /cart/count の出力
type CartCountOutput struct {
	TotalItems int64  `json:"total_items"`
	Badge      string `json:"badge"`
	Label      string `json:"label"`
}

func (u *CartUsecase) GetCart(cart Cart) model.CartSnapshot {
	return cart.Snapshot()
}

func (u *CartUsecase) Count(cart Cart) CartCountOutput {
	n := cart.Snapshot().TotalItems
	return CartCountOutput{
		TotalItems: n,
		Badge:      model.BadgeLabel(n),
		Label:      model.ItemsLabel(n),
	}
}

// 参照を解決・検証してから、数量分addItemする。
func (u *CartUsecase) AddToCart(ctx context.Context, cart Cart, in AddToCartInput) (model.CartSnapshot, error) {
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if err := validator.ValidateAddQuantity(qty); err != nil {
		return model.CartSnapshot{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	p, err := u.products.ResolveReference(ctx, in.Reference)
	if err != nil {
		return model.CartSnapshot{}, err
	}

	c := p.Candidate()
	if err := validator.ValidateCandidate(c); err != nil {
		return model.CartSnapshot{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}

	for i := int64(0); i < qty; i++ {
		cart.AddItem(ctx, c)
	}
	return cart.Snapshot(), nil
}

// 0以下は削除
func (u *CartUsecase) UpdateQuantity(ctx context.Context, cart Cart, itemID string, quantity int64) model.CartSnapshot {
	cart.UpdateQuantity(ctx, itemID, quantity)
	return cart.Snapshot()
}

// 数量+1（カートドロワーの＋ボタン）
func (u *CartUsecase) Increment(ctx context.Context, cart Cart, itemID string) model.CartSnapshot {
	cart.AdjustQuantity(ctx, itemID, 1)
	return cart.Snapshot()
}

// 数量-1（1から下げると削除）
func (u *CartUsecase) Decrement(ctx context.Context, cart Cart, itemID string) model.CartSnapshot {
	cart.AdjustQuantity(ctx, itemID, -1)
	return cart.Snapshot()
}

// 無いidでもエラーにしない
func (u *CartUsecase) RemoveItem(ctx context.Context, cart Cart, itemID string) model.CartSnapshot {
	cart.RemoveItem(ctx, itemID)
	return cart.Snapshot()
}

func (u *CartUsecase) Clear(ctx context.Context, cart Cart) model.CartSnapshot {
	cart.ClearCart(ctx)
	return cart.Snapshot()
}

func (u *CartUsecase) Toggle(cart Cart) model.CartSnapshot {
	cart.ToggleCart()
	return cart.Snapshot()
}

func (u *CartUsecase) Open(cart Cart) model.CartSnapshot {
	cart.OpenCart()
	return cart.Snapshot()
}

func (u *CartUsecase) Close(cart Cart) model.CartSnapshot {
	cart.CloseCart()
	return cart.Snapshot()
}
