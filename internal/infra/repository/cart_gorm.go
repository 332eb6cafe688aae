package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cart_statesテーブルのキー・バリューストア
type CartStateGormRepository struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// DI
func NewCartStateGormRepository(db *gorm.DB, ttl time.Duration) *CartStateGormRepository {
	return &CartStateGormRepository{db: db, ttl: ttl, now: time.Now}
}

// キーの状態を取得（期限切れは削除してErrNotFound）
func (r *CartStateGormRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var rec model.CartStateRecord

	err := r.db.WithContext(ctx).
		Where("cart_key = ?", key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !rec.ExpiresAt.After(r.now()) {
		if err := r.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, repo.ErrNotFound
	}

	return rec.Payload, nil
}

// 保存のたびに期限を延長する（upsert）
func (r *CartStateGormRepository) Save(ctx context.Context, key string, payload []byte) error {
	now := r.now()
	rec := model.CartStateRecord{
		Key:       key,
		Payload:   payload,
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).
		Create(&rec).Error
}

// 無くてもエラーにしない
func (r *CartStateGormRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("cart_key = ?", key).
		Delete(&model.CartStateRecord{}).Error
}

// 期限切れの行をまとめて削除
func (r *CartStateGormRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", r.now()).
		Delete(&model.CartStateRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
