package repository

import (
	"context"
)

// カート状態の永続化（キー・バリュー）だけを約束。
// 期限切れのキーはErrNotFoundを返す。
type CartStateStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}
