package model

import "time"

// 永続化されたカート状態（キー・バリュー）
type CartStateRecord struct {
	Key       string    `gorm:"column:cart_key;primaryKey;type:varchar(191)" json:"key"`
	Payload   []byte    `gorm:"type:bytea;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (CartStateRecord) TableName() string {
	return "cart_states"
}

// 保存するJSONの形。isOpenは保存しない。
type PersistedCart struct {
	Version int            `json:"version"`
	Items   []CartLineItem `json:"items"`
}

const PersistedCartVersion = 1
