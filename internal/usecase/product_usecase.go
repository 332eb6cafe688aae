package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

const defaultProductName = "Produto sem nome"

// 商品取得と参照解決（カートを使う側の前段）
type ProductUsecase struct {
	productRepo repo.ProductRepository
	log         *zap.Logger
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository, log *zap.Logger) *ProductUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductUsecase{productRepo: productRepo, log: log}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid q")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:  in.Page,
		Limit: in.Limit,
		Q:     strings.TrimSpace(in.Q),
	})
	if err != nil {
		u.log.Error("product list failed", zap.Error(err))
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to load products")
	}

	return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 商品詳細（not found / error を区別する）
func (u *ProductUsecase) GetProductDetail(ctx context.Context, id string) (model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		u.log.Error("product fetch failed", zap.String("product_id", id), zap.Error(err))
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "failed to load product")
	}
	return p, nil
}

// 参照をフラットな商品に解決する。IDだけなら取得する。
// 展開済みでも保存済みの商品があればそちらを使う（リクエスト内の価格は信用しない）。
func (u *ProductUsecase) ResolveReference(ctx context.Context, ref model.ProductRef) (model.Product, error) {
	switch ref.Kind {
	case model.ProductRefInline:
		return u.resolveInline(ctx, *ref.Inline)
	case model.ProductRefByID:
		return u.GetProductDetail(ctx, ref.ID)
	default:
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "product reference is required")
	}
}

func (u *ProductUsecase) resolveInline(ctx context.Context, doc model.ProductDocument) (model.Product, error) {
	inline := NormalizeProduct(doc)
	if strings.TrimSpace(inline.ID) == "" {
		return inline, nil
	}

	stored, err := u.productRepo.FindByID(ctx, inline.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return inline, nil
	}
	if err != nil {
		u.log.Error("product fetch failed", zap.String("product_id", inline.ID), zap.Error(err))
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "failed to load product")
	}
	return stored, nil
}

// CMSからの商品を保存（webhook）
func (u *ProductUsecase) SyncProduct(ctx context.Context, doc model.ProductDocument) (model.Product, error) {
	p := NormalizeProduct(doc)
	if p.ID == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}

	saved, err := u.productRepo.Upsert(ctx, p)
	if err != nil {
		u.log.Error("product sync failed", zap.String("product_id", p.ID), zap.Error(err))
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return saved, nil
}

// CMSドキュメント（{id,data}形式またはフラット）を商品に変換する。
// 価格は主単位から最小単位（×100）へ。
func NormalizeProduct(doc model.ProductDocument) model.Product {
	d := doc.ProductData
	id := doc.DocumentID()
	if doc.Data != nil {
		d = *doc.Data
	}

	p := model.Product{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		Price:         toMinorUnit(d.Price),
		OriginalPrice: toMinorUnitPtr(d.OriginalPrice),
		Image:         d.Image,
		Badge:         d.Badge,
		Slug:          d.Slug,
		Rating:        d.Rating,
		Reviews:       d.Reviews,
		IsActive:      true,
	}
	if p.Name == "" {
		p.Name = defaultProductName
	}
	return p
}

// 範囲外（NaN・無限大・上限超え）は0（＝カートに入れられない価格）
func toMinorUnit(v *float64) int64 {
	if v == nil {
		return 0
	}
	m := math.Round(*v * 100)
	if math.IsNaN(m) || m > float64(model.MaxUnitPrice) || m < -float64(model.MaxUnitPrice) {
		return 0
	}
	return int64(m)
}

func toMinorUnitPtr(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := toMinorUnit(v)
	return &n
}
