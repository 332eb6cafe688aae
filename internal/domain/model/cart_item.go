package model

import "math"

// 単価の上限（最小単位）。99個×多数の明細でもint64に収まる値。
const MaxUnitPrice int64 = 10_000_000_000

// カートの明細
// name/price/imageは追加時点の値を保持する（再同期しない）。
type CartLineItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"original_price,omitempty"`
	Image         string `json:"image"`
	Href          string `json:"href,omitempty"`
	Quantity      int64  `json:"quantity"`
}

// 追加リクエストの候補（quantityなし、1回の追加で1つ）
type CartItemCandidate struct {
	ID            string
	Name          string
	Price         int64
	OriginalPrice *int64
	Image         string
	Href          string
}

// 候補から数量1の明細を作る
func (c CartItemCandidate) LineItem() CartLineItem {
	item := CartLineItem{
		ID:       c.ID,
		Name:     c.Name,
		Price:    c.Price,
		Image:    c.Image,
		Href:     c.Href,
		Quantity: 1,
	}
	if c.OriginalPrice != nil {
		op := *c.OriginalPrice
		item.OriginalPrice = &op
	}
	return item
}

// 小計（price × quantity）
// 溢れる場合はmath.MaxInt64で止める
func (i CartLineItem) Subtotal() int64 {
	if i.Quantity > 0 && i.Price > math.MaxInt64/i.Quantity {
		return math.MaxInt64
	}
	return i.Price * i.Quantity
}
