package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DATABASE_URLがある時だけ実DBで動かす
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func testKey(t *testing.T, gormDB *gorm.DB) string {
	t.Helper()
	key := "test:cart:" + uuid.NewString()
	t.Cleanup(func() {
		gormDB.Where("cart_key = ?", key).Delete(&model.CartStateRecord{})
	})
	return key
}

func TestCartStateGormRepository_SaveUpsertsByKey(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	r := NewCartStateGormRepository(gormDB, time.Hour)
	key := testKey(t, gormDB)

	_, err := r.Load(ctx, key)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.Save(ctx, key, []byte(`{"version":1,"items":[]}`)))
	require.NoError(t, r.Save(ctx, key, []byte(`{"version":1,"items":[{"id":"P1"}]}`)))

	got, err := r.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1,"items":[{"id":"P1"}]}`, string(got))

	var n int64
	require.NoError(t, gormDB.Model(&model.CartStateRecord{}).Where("cart_key = ?", key).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	require.NoError(t, r.Delete(ctx, key))
	require.NoError(t, r.Delete(ctx, key))
	_, err = r.Load(ctx, key)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCartStateGormRepository_Expiry(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	r := NewCartStateGormRepository(gormDB, time.Hour)
	key := testKey(t, gormDB)

	require.NoError(t, r.Save(ctx, key, []byte("x")))

	// 期限後の読み込みは無いものとして扱い、行も消す
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := r.Load(ctx, key)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	var n int64
	require.NoError(t, gormDB.Model(&model.CartStateRecord{}).Where("cart_key = ?", key).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestCartStateGormRepository_PurgeExpired(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	r := NewCartStateGormRepository(gormDB, time.Minute)
	expired := testKey(t, gormDB)
	live := testKey(t, gormDB)

	r.now = func() time.Time { return time.Now().Add(-time.Hour) }
	require.NoError(t, r.Save(ctx, expired, []byte("old")))
	r.now = time.Now
	require.NoError(t, r.Save(ctx, live, []byte("new")))

	purged, err := r.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))

	_, err = r.Load(ctx, expired)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	got, err := r.Load(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}
