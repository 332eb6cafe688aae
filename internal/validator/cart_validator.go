package validator

import (
	"errors"
	"strings"

	"storefront/internal/domain/model"
)

const MaxAddQuantity = 99

var (
	// id/name/priceのどれかが不正
	ErrInvalidProduct = errors.New("invalid product")

	// 追加数量が範囲外
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// カート追加前の検証（Engineは検証しないので呼び出し側で必ず行う）
func ValidateCandidate(c model.CartItemCandidate) error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidProduct
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidProduct
	}
	if c.Price <= 0 || c.Price > model.MaxUnitPrice {
		return ErrInvalidProduct
	}
	return nil
}

// 1回の追加リクエストの数量（1〜99）
func ValidateAddQuantity(q int64) error {
	if q < 1 || q > MaxAddQuantity {
		return ErrInvalidQuantity
	}
	return nil
}
