package usecase

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartSessions はセッションIDごとのCartEngineを保持する。
// 初回アクセスで作成（保存済みがあれば復元）し、一定時間使われなければ手放す。
// 購読中（/cart/events）のEngineは期限が切れても手放さない。
type CartSessions struct {
	engines *ttlcache.Cache[string, *CartEngine]
	group   singleflight.Group

	pinMu  sync.Mutex
	pinned map[string]*pinnedEngine

	store     repo.CartStateStore
	keyPrefix string
	log       *zap.Logger
}

type pinnedEngine struct {
	engine *CartEngine
	refs   int
}

// DI
func NewCartSessions(store repo.CartStateStore, keyPrefix string, idleTTL time.Duration, log *zap.Logger) *CartSessions {
	if log == nil {
		log = zap.NewNop()
	}

	engines := ttlcache.New[string, *CartEngine](
		ttlcache.WithTTL[string, *CartEngine](idleTTL),
	)
	engines.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *CartEngine]) {
		log.Debug("cart session released", zap.String("session", item.Key()), zap.Int("reason", int(reason)))
	})
	go engines.Start()

	return &CartSessions{
		engines:   engines,
		pinned:    make(map[string]*pinnedEngine),
		store:     store,
		keyPrefix: keyPrefix,
		log:       log,
	}
}

// 保存キー（名前空間付き）
func (s *CartSessions) StorageKey(sessionID string) string {
	return s.keyPrefix + ":" + sessionID
}

// セッションのカートを返す。同時アクセスでも作成は1回。
// 読み込みに失敗した場合は保存しないEngineを返し、次回また読み込む。
func (s *CartSessions) Get(ctx context.Context, sessionID string) *CartEngine {
	if item := s.engines.Get(sessionID); item != nil {
		return item.Value()
	}

	v, _, _ := s.group.Do(sessionID, func() (interface{}, error) {
		if item := s.engines.Get(sessionID); item != nil {
			return item.Value(), nil
		}
		if e, ok := s.pinnedEngine(sessionID); ok {
			s.engines.Set(sessionID, e, ttlcache.DefaultTTL)
			return e, nil
		}

		e, err := RestoreCartEngine(context.WithoutCancel(ctx), s.StorageKey(sessionID), s.store, s.log.With(zap.String("session", sessionID)))
		if err != nil {
			return e, nil
		}
		s.engines.Set(sessionID, e, ttlcache.DefaultTTL)
		return e, nil
	})
	return v.(*CartEngine)
}

// セッションのカートを購読する。解除するまでEngineは同じものが使われる。
func (s *CartSessions) Subscribe(ctx context.Context, sessionID string, fn func(model.CartSnapshot)) (*CartEngine, func()) {
	e := s.Get(ctx, sessionID)

	s.pinMu.Lock()
	p := s.pinned[sessionID]
	if p == nil || p.engine != e {
		p = &pinnedEngine{engine: e}
		s.pinned[sessionID] = p
	}
	p.refs++
	s.pinMu.Unlock()

	unsubscribe := e.Subscribe(fn)

	var once sync.Once
	return e, func() {
		once.Do(func() {
			unsubscribe()

			s.pinMu.Lock()
			defer s.pinMu.Unlock()
			if cur := s.pinned[sessionID]; cur == p {
				p.refs--
				if p.refs <= 0 {
					delete(s.pinned, sessionID)
				}
			}
		})
	}
}

func (s *CartSessions) pinnedEngine(sessionID string) (*CartEngine, bool) {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	p, ok := s.pinned[sessionID]
	if !ok {
		return nil, false
	}
	return p.engine, true
}

// メモリ上のEngineを手放す（保存済みの状態は残る）
func (s *CartSessions) Forget(sessionID string) {
	s.engines.Delete(sessionID)
}

// 保持中のセッション数
func (s *CartSessions) Len() int {
	return s.engines.Len()
}

func (s *CartSessions) Close() {
	s.engines.Stop()
}
