package model

import (
	"math"
	"strconv"
)

// カートの状態
// 合計値は保持しない。Itemsから毎回計算する。
type CartState struct {
	Items  []CartLineItem
	IsOpen bool
}

// 全明細の数量合計
func (s CartState) TotalItems() int64 {
	var n int64
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// 全明細の price × quantity 合計
func (s CartState) TotalPrice() int64 {
	var total int64
	for _, it := range s.Items {
		sub := it.Subtotal()
		if total > math.MaxInt64-sub {
			return math.MaxInt64
		}
		total += sub
	}
	return total
}

// idの明細位置。無ければ-1
func (s CartState) IndexOf(id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Snapshot は呼び出し側が変更しても状態に影響しないコピーを返す。
func (s CartState) Snapshot() CartSnapshot {
	return CartSnapshot{
		Items:      CloneItems(s.Items),
		IsOpen:     s.IsOpen,
		TotalItems: s.TotalItems(),
		TotalPrice: s.TotalPrice(),
	}
}

// 購読者・APIに渡すカートの読み取り専用ビュー
type CartSnapshot struct {
	Items      []CartLineItem `json:"items"`
	IsOpen     bool           `json:"is_open"`
	TotalItems int64          `json:"total_items"`
	TotalPrice int64          `json:"total_price"`
}

// 明細スライスのディープコピー
func CloneItems(items []CartLineItem) []CartLineItem {
	out := make([]CartLineItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.OriginalPrice != nil {
			op := *it.OriginalPrice
			out[i].OriginalPrice = &op
		}
	}
	return out
}

// カートボタンのバッジ表示（0は非表示、100以上は99+）
func BadgeLabel(totalItems int64) string {
	if totalItems <= 0 {
		return ""
	}
	if totalItems > 99 {
		return "99+"
	}
	return strconv.FormatInt(totalItems, 10)
}

// カウンター表示（1 item / n itens）
func ItemsLabel(totalItems int64) string {
	if totalItems == 1 {
		return "1 item"
	}
	return strconv.FormatInt(totalItems, 10) + " itens"
}
