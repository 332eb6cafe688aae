package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCartUsecase(pRepo *ProductRepoMock) *usecase.CartUsecase {
	return usecase.NewCartUsecase(usecase.NewProductUsecase(pRepo, nil))
}

func TestCartUsecase_AddToCart_ByID(t *testing.T) {
	ctx := context.Background()
	pRepo := new(ProductRepoMock)
	pRepo.On("FindByID", mock.Anything, "P1").
		Return(model.Product{ID: "P1", Name: "Café", Price: 1000, Image: "a.png", Slug: "cafe", IsActive: true}, nil)

	uc := newCartUsecase(pRepo)
	cart := usecase.NewCartEngine("k", nil, nil)

	out, err := uc.AddToCart(ctx, cart, usecase.AddToCartInput{Reference: model.RefByID("P1")})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "/produto/cafe", out.Items[0].Href)
	assert.Equal(t, int64(1), out.TotalItems)

	out, err = uc.AddToCart(ctx, cart, usecase.AddToCartInput{Reference: model.RefByID("P1")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Items[0].Quantity)
	assert.Equal(t, int64(2000), out.TotalPrice)
}

func TestCartUsecase_AddToCart_QuantityAddsEachUnit(t *testing.T) {
	ctx := context.Background()
	pRepo := new(ProductRepoMock)
	pRepo.On("FindByID", mock.Anything, "P1").Return(model.Product{}, repo.ErrNotFound)
	uc := newCartUsecase(pRepo)
	cart := usecase.NewCartEngine("k", nil, nil)

	notified := 0
	cart.Subscribe(func(model.CartSnapshot) { notified++ })

	doc := model.ProductDocument{ProductData: model.ProductData{ID: "P1", Name: "Café", Price: ptr(5.0)}}
	out, err := uc.AddToCart(ctx, cart, usecase.AddToCartInput{Reference: model.RefInline(doc), Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(3), out.Items[0].Quantity)
	assert.Equal(t, int64(1500), out.TotalPrice)
	assert.Equal(t, 3, notified)
}

func TestCartUsecase_AddToCart_InvalidProductLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	pRepo := new(ProductRepoMock)
	pRepo.On("FindByID", mock.Anything, "P1").Return(model.Product{}, repo.ErrNotFound)
	uc := newCartUsecase(pRepo)
	cart := usecase.NewCartEngine("k", nil, nil)

	cases := map[string]model.ProductDocument{
		"no price":       {ProductData: model.ProductData{ID: "P1", Name: "Café"}},
		"zero price":     {ProductData: model.ProductData{ID: "P1", Name: "Café", Price: ptr(0.0)}},
		"no id":          {Data: &model.ProductData{Name: "Café", Price: ptr(5.0)}},
		"price too high": {ProductData: model.ProductData{ID: "P1", Name: "Café", Price: ptr(5e16)}},
	}

	for name, doc := range cases {
		_, err := uc.AddToCart(ctx, cart, usecase.AddToCartInput{Reference: model.RefInline(doc)})
		assertHTTPError(t, err, http.StatusBadRequest, "invalid product")
		assert.Empty(t, cart.Items(), name)
	}
}

func TestCartUsecase_AddToCart_InlinePriceCannotOverrideCatalog(t *testing.T) {
	ctx := context.Background()
	pRepo := new(ProductRepoMock)
	pRepo.On("FindByID", mock.Anything, "real-product").
		Return(model.Product{ID: "real-product", Name: "Café especial", Price: 4990, Image: "cafe.png", IsActive: true}, nil)

	uc := newCartUsecase(pRepo)
	cart := usecase.NewCartEngine("k", nil, nil)

	doc := model.ProductDocument{ProductData: model.ProductData{ID: "real-product", Name: "Barato", Price: ptr(0.01)}}
	out, err := uc.AddToCart(ctx, cart, usecase.AddToCartInput{Reference: model.RefInline(doc), Quantity: 2})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "Café especial", out.Items[0].Name)
	assert.Equal(t, int64(4990), out.Items[0].Price)
	assert.Equal(t, int64(9980), out.TotalPrice)
}

func TestCartUsecase_IncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	uc := newCartUsecase(new(ProductRepoMock))
	cart := usecase.NewCartEngine("k", slowStore{newMemoryStore(t)}, nil)
	cart.AddItem(ctx, product("P1", 1000))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uc.Increment(ctx, cart, "P1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n+1), cart.Items()[0].Quantity)
}

func TestCartUsecase_AddToCart_InvalidQuantity(t *testing.T) {
	uc := newCartUsecase(new(ProductRepoMock))
	cart := usecase.NewCartEngine("k", nil, nil)

	for _, q := range []int64{-1, 100} {
		_, err := uc.AddToCart(context.Background(), cart, usecase.AddToCartInput{Reference: model.RefByID("P1"), Quantity: q})
		assertHTTPError(t, err, http.StatusBadRequest, "invalid quantity")
	}
	assert.Empty(t, cart.Items())
}

func TestCartUsecase_AddToCart_FetchStates(t *testing.T) {
	pRepo := new(ProductRepoMock)
	pRepo.On("FindByID", mock.Anything, "gone").Return(model.Product{}, repo.ErrNotFound)
	pRepo.On("FindByID", mock.Anything, "boom").Return(model.Product{}, errors.New("cms down"))

	uc := newCartUsecase(pRepo)
	cart := usecase.NewCartEngine("k", nil, nil)

	_, err := uc.AddToCart(context.Background(), cart, usecase.AddToCartInput{Reference: model.RefByID("gone")})
	assertHTTPError(t, err, http.StatusNotFound, "product not found")

	_, err = uc.AddToCart(context.Background(), cart, usecase.AddToCartInput{Reference: model.RefByID("boom")})
	assertHTTPError(t, err, http.StatusInternalServerError, "failed to load product")

	assert.Empty(t, cart.Items())
}

func TestCartUsecase_IncrementDecrement(t *testing.T) {
	ctx := context.Background()
	uc := newCartUsecase(new(ProductRepoMock))
	cart := usecase.NewCartEngine("k", nil, nil)
	cart.AddItem(ctx, product("P1", 1000))

	out := uc.Increment(ctx, cart, "P1")
	assert.Equal(t, int64(2), out.Items[0].Quantity)

	out = uc.Decrement(ctx, cart, "P1")
	assert.Equal(t, int64(1), out.Items[0].Quantity)

	// 1から下げると消える
	out = uc.Decrement(ctx, cart, "P1")
	assert.Empty(t, out.Items)

	out = uc.Increment(ctx, cart, "P1")
	assert.Empty(t, out.Items)
}

func TestCartUsecase_Count(t *testing.T) {
	ctx := context.Background()
	uc := newCartUsecase(new(ProductRepoMock))
	cart := usecase.NewCartEngine("k", nil, nil)

	assert.Equal(t, usecase.CartCountOutput{TotalItems: 0, Badge: "", Label: "0 itens"}, uc.Count(cart))

	cart.AddItem(ctx, product("P1", 1000))
	assert.Equal(t, usecase.CartCountOutput{TotalItems: 1, Badge: "1", Label: "1 item"}, uc.Count(cart))

	cart.UpdateQuantity(ctx, "P1", 120)
	assert.Equal(t, "99+", uc.Count(cart).Badge)
}

func TestCartUsecase_VisibilityAndClear(t *testing.T) {
	ctx := context.Background()
	uc := newCartUsecase(new(ProductRepoMock))
	cart := usecase.NewCartEngine("k", nil, nil)
	cart.AddItem(ctx, product("P1", 1000))

	assert.True(t, uc.Toggle(cart).IsOpen)
	assert.True(t, uc.Open(cart).IsOpen)

	out := uc.Clear(ctx, cart)
	assert.Empty(t, out.Items)
	assert.True(t, out.IsOpen)

	assert.False(t, uc.Close(cart).IsOpen)
}
