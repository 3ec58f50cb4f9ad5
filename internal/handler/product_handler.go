package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/storeman/internal/catalog"
	"github.com/hitoshi/storeman/internal/middleware"
	"github.com/hitoshi/storeman/internal/model"
)

// CatalogServiceInterface は商品ハンドラーが必要とするカタログサービスのインターフェース。
type CatalogServiceInterface interface {
	List(ctx context.Context, filter catalog.Filter) ([]model.Product, error)
	Product(ctx context.Context, id int) (*model.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
}

// ProductHandler は商品カタログのHTTPハンドラー。
type ProductHandler struct {
	service CatalogServiceInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service CatalogServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

// productListResponse は商品一覧のレスポンス。
type productListResponse struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
}

// ListProducts はフィルタ条件に一致する商品一覧を返す。
// GET /api/products?category=&q=&brand=&maxPrice=&new=&sale=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productListResponse{
		Products: products,
		Total:    len(products),
	})
}

// GetProduct はIDで商品を1件返す。
// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("商品IDが不正です"))
		return
	}

	product, err := h.service.Product(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// ListCategories はカタログのカテゴリ一覧を返す。
// GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// ListBrands はカタログのブランド一覧を返す。
// GET /api/brands
func (h *ProductHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.Brands(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, brands)
}

// filterFromQuery はクエリパラメータからフィルタ条件を組み立てる。
func filterFromQuery(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()

	filter := catalog.Filter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Brand:    q.Get("brand"),
		OnlyNew:  q.Get("new") == "true",
		OnlySale: q.Get("sale") == "true",
	}

	if raw := q.Get("maxPrice"); raw != "" {
		maxPrice, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.Filter{}, model.NewInvalidRequestError("maxPriceが数値ではありません")
		}
		filter.MaxPrice = &maxPrice
	}

	return filter, nil
}
