package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// Cart はカートを読む・操作する側（ハンドラ等）に渡す能力。
// 明細を直接書き換える手段はない。
type Cart interface {
	Snapshot() model.CartSnapshot
	AddItem(ctx context.Context, c model.CartItemCandidate)
	RemoveItem(ctx context.Context, id string)
	UpdateQuantity(ctx context.Context, id string, quantity int64)
	AdjustQuantity(ctx context.Context, id string, delta int64)
	ClearCart(ctx context.Context)
	ToggleCart()
	OpenCart()
	CloseCart()
	Subscribe(fn func(model.CartSnapshot)) (unsubscribe func())
}

const persistTimeout = 3 * time.Second

var errInvalidPersistedCart = errors.New("invalid persisted cart")

type cartSubscriber struct {
	id int
	fn func(model.CartSnapshot)
}

// CartEngine は1セッション分のカートの唯一の正。
// 操作はopMuで直列化し、変更後に保存→購読者へ通知する。
// 購読者の中からカートを変更しないこと（opMuでデッドロックする）。
type CartEngine struct {
	opMu sync.Mutex

	mu    sync.RWMutex
	state model.CartState

	subMu     sync.Mutex
	subs      []cartSubscriber
	nextSubID int

	key   string
	store repo.CartStateStore
	log   *zap.Logger
}

var _ Cart = (*CartEngine)(nil)

// DI（storeがnilなら保存しない）
func NewCartEngine(key string, store repo.CartStateStore, log *zap.Logger) *CartEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartEngine{
		state: model.CartState{Items: []model.CartLineItem{}},
		key:   key,
		store: store,
		log:   log,
	}
}

// 保存済みの状態から復元する。壊れている場合は空のカート。
// 読み込み自体に失敗した場合は、保存済みを上書きしないよう保存しないEngineとエラーを返す。
func RestoreCartEngine(ctx context.Context, key string, store repo.CartStateStore, log *zap.Logger) (*CartEngine, error) {
	e := NewCartEngine(key, store, log)
	if store == nil {
		return e, nil
	}

	payload, err := store.Load(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return e, nil
	}
	if err != nil {
		e.log.Warn("cart restore failed", zap.String("key", key), zap.Error(err))
		e.store = nil
		return e, err
	}

	items, err := DecodePersistedCart(payload)
	if err != nil {
		// 古い形式などは丸ごと捨てる
		e.log.Info("discarding persisted cart", zap.String("key", key), zap.Error(err))
		if delErr := store.Delete(ctx, key); delErr != nil {
			e.log.Warn("cart discard failed", zap.String("key", key), zap.Error(delErr))
		}
		return e, nil
	}

	e.state.Items = items
	return e, nil
}

// 現在の状態（コピー）
func (e *CartEngine) Snapshot() model.CartSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Snapshot()
}

func (e *CartEngine) Items() []model.CartLineItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return model.CloneItems(e.state.Items)
}

func (e *CartEngine) IsOpen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.IsOpen
}

func (e *CartEngine) TotalItems() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.TotalItems()
}

func (e *CartEngine) TotalPrice() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.TotalPrice()
}

// 同一idは数量+1（name/price/imageは最初の値のまま）、無ければ末尾に追加。
// idが空なら何もしない。
func (e *CartEngine) AddItem(ctx context.Context, c model.CartItemCandidate) {
	if c.ID == "" {
		e.log.Debug("add ignored: empty product id")
		return
	}

	e.mutateItems(ctx, func(s *model.CartState) bool {
		if i := s.IndexOf(c.ID); i >= 0 {
			s.Items[i].Quantity++
			return true
		}
		s.Items = append(s.Items, c.LineItem())
		return true
	})
}

// 数量に関係なく明細を削除。無ければ何もしない。
func (e *CartEngine) RemoveItem(ctx context.Context, id string) {
	e.mutateItems(ctx, func(s *model.CartState) bool {
		return removeAt(s, s.IndexOf(id))
	})
}

// 1以上なら数量を設定、0以下なら削除。無ければ何もしない。
func (e *CartEngine) UpdateQuantity(ctx context.Context, id string, quantity int64) {
	e.mutateItems(ctx, func(s *model.CartState) bool {
		i := s.IndexOf(id)
		if i < 0 {
			return false
		}
		if quantity <= 0 {
			return removeAt(s, i)
		}
		if s.Items[i].Quantity == quantity {
			return false
		}
		s.Items[i].Quantity = quantity
		return true
	})
}

// 数量をdeltaだけ増減する（読み取りと書き込みを1操作で行う）。
// 結果が0以下なら削除。無ければ何もしない。
func (e *CartEngine) AdjustQuantity(ctx context.Context, id string, delta int64) {
	if delta == 0 {
		return
	}
	e.mutateItems(ctx, func(s *model.CartState) bool {
		i := s.IndexOf(id)
		if i < 0 {
			return false
		}
		q := s.Items[i].Quantity + delta
		if q <= 0 {
			return removeAt(s, i)
		}
		s.Items[i].Quantity = q
		return true
	})
}

// 明細を全削除（isOpenは変えない）
func (e *CartEngine) ClearCart(ctx context.Context) {
	e.mutateItems(ctx, func(s *model.CartState) bool {
		if len(s.Items) == 0 {
			return false
		}
		s.Items = []model.CartLineItem{}
		return true
	})
}

func (e *CartEngine) ToggleCart() {
	e.setOpen(func(open bool) bool { return !open })
}

func (e *CartEngine) OpenCart() {
	e.setOpen(func(bool) bool { return true })
}

func (e *CartEngine) CloseCart() {
	e.setOpen(func(bool) bool { return false })
}

// 変更のたびに新しいスナップショットで呼ばれる（登録順・同期）。
func (e *CartEngine) Subscribe(fn func(model.CartSnapshot)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.nextSubID++
	id := e.nextSubID
	e.subs = append(e.subs, cartSubscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (e *CartEngine) mutateItems(ctx context.Context, fn func(s *model.CartState) bool) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	changed := fn(&e.state)
	snap := e.state.Snapshot()
	e.mu.Unlock()

	if !changed {
		return
	}

	e.persist(ctx, snap.Items)
	e.publish(snap)
}

func (e *CartEngine) setOpen(next func(open bool) bool) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	before := e.state.IsOpen
	e.state.IsOpen = next(before)
	changed := before != e.state.IsOpen
	snap := e.state.Snapshot()
	e.mu.Unlock()

	if changed {
		e.publish(snap)
	}
}

// 保存の失敗はログだけ。メモリ上の状態が正。
func (e *CartEngine) persist(ctx context.Context, items []model.CartLineItem) {
	if e.store == nil {
		return
	}

	payload, err := EncodePersistedCart(items)
	if err != nil {
		e.log.Error("cart encode failed", zap.String("key", e.key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := e.store.Save(ctx, e.key, payload); err != nil {
		e.log.Warn("cart persist failed", zap.String("key", e.key), zap.Error(err))
	}
}

func (e *CartEngine) publish(snap model.CartSnapshot) {
	e.subMu.Lock()
	subs := make([]cartSubscriber, len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()

	for _, s := range subs {
		// 購読者ごとにコピーを渡す
		s.fn(model.CartState{Items: snap.Items, IsOpen: snap.IsOpen}.Snapshot())
	}
}

func removeAt(s *model.CartState, i int) bool {
	if i < 0 {
		return false
	}
	s.Items = append(s.Items[:i:i], s.Items[i+1:]...)
	return true
}

// {version, items} のJSON
func EncodePersistedCart(items []model.CartLineItem) ([]byte, error) {
	if items == nil {
		items = []model.CartLineItem{}
	}
	return json.Marshal(model.PersistedCart{
		Version: model.PersistedCartVersion,
		Items:   items,
	})
}

// 形式・バージョン・明細のどれかが不正ならエラー（部分的には使わない）
func DecodePersistedCart(payload []byte) ([]model.CartLineItem, error) {
	var pc model.PersistedCart
	if err := json.Unmarshal(payload, &pc); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidPersistedCart, err)
	}
	if pc.Version != model.PersistedCartVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errInvalidPersistedCart, pc.Version)
	}

	seen := make(map[string]struct{}, len(pc.Items))
	for _, it := range pc.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("%w: empty id", errInvalidPersistedCart)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity %d for %q", errInvalidPersistedCart, it.Quantity, it.ID)
		}
		if it.Price < 0 {
			return nil, fmt.Errorf("%w: negative price for %q", errInvalidPersistedCart, it.ID)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", errInvalidPersistedCart, it.ID)
		}
		seen[it.ID] = struct{}{}
	}

	if pc.Items == nil {
		pc.Items = []model.CartLineItem{}
	}
	return pc.Items, nil
}
