package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storeman/internal/metrics"
	"github.com/hitoshi/storeman/internal/middleware"
	"github.com/hitoshi/storeman/internal/model"
)

// BasketStoreInterface はカートハンドラーが必要とするストアのインターフェース。
type BasketStoreInterface interface {
	Add(product model.Product)
	Remove(productID int)
	SetQuantity(productID, quantity int)
	Clear()
	Snapshot() model.Basket
}

// ProductFinder は商品IDから商品を解決するインターフェース。
type ProductFinder interface {
	Product(ctx context.Context, id int) (*model.Product, error)
}

// BasketHandler はカート管理のHTTPハンドラー。
type BasketHandler struct {
	store     BasketStoreInterface
	finder    ProductFinder
	collector metrics.MetricsCollector
}

// NewBasketHandler はBasketHandlerを生成する。
func NewBasketHandler(store BasketStoreInterface, finder ProductFinder, collector metrics.MetricsCollector) *BasketHandler {
	return &BasketHandler{
		store:     store,
		finder:    finder,
		collector: collector,
	}
}

// addItemRequest はカート追加リクエストのボディ。
type addItemRequest struct {
	ProductID int `json:"productId"`
}

// setQuantityRequest は数量変更リクエストのボディ。
type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetBasket はカートの内容（行・点数・合計金額）を返す。
// GET /api/basket
func (h *BasketHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// AddItem は商品をカートに追加する。既存の行があれば数量が1増える。
// POST /api/basket/items
func (h *BasketHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	product, err := h.finder.Product(r.Context(), req.ProductID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.store.Add(*product)
	h.collector.RecordBasketMutation("add")
	writeJSON(w, http.StatusCreated, h.store.Snapshot())
}

// SetQuantity はカート内の商品の数量を変更する。0以下の指定は行の削除になる。
// PUT /api/basket/items/{id}
func (h *BasketHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("商品IDが不正です"))
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	h.store.SetQuantity(productID, req.Quantity)
	h.collector.RecordBasketMutation("set_quantity")
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// RemoveItem はカートから商品を削除する。存在しない商品の指定は黙って成功する。
// DELETE /api/basket/items/{id}
func (h *BasketHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("商品IDが不正です"))
		return
	}

	h.store.Remove(productID)
	h.collector.RecordBasketMutation("remove")
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// ClearBasket はカートを空にする。
// DELETE /api/basket
func (h *BasketHandler) ClearBasket(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	h.collector.RecordBasketMutation("clear")
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}
