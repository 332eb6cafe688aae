package model

import (
	"time"

	"gorm.io/gorm"
)

// CMSから取り込んだ商品のフラットな記録
type Product struct {
	ID            string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Price         int64          `gorm:"not null" json:"price"`
	OriginalPrice *int64         `json:"original_price,omitempty"`
	Image         string         `gorm:"type:text" json:"image"`
	Badge         string         `gorm:"type:varchar(64)" json:"badge,omitempty"`
	Slug          string         `gorm:"type:varchar(255);index" json:"slug,omitempty"`
	Rating        *float64       `json:"rating,omitempty"`
	Reviews       *int64         `json:"reviews,omitempty"`
	IsActive      bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// 商品詳細ページへのリンク（slug優先）
func (p Product) Href() string {
	if p.Slug != "" {
		return "/produto/" + p.Slug
	}
	return "/produto/" + p.ID
}

// カート追加用の候補に変換
func (p Product) Candidate() CartItemCandidate {
	return CartItemCandidate{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		Href:          p.Href(),
	}
}
