// Package handler はJSON APIのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/storeman/internal/metrics"
	"github.com/hitoshi/storeman/internal/middleware"
	"github.com/hitoshi/storeman/internal/model"
	"github.com/hitoshi/storeman/internal/shopapi"
)

// SessionStoreInterface は認証ハンドラーが必要とするセッションストアのインターフェース。
type SessionStoreInterface interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, user shopapi.NewUser) (*model.Profile, error)
	Logout()
	Profile(ctx context.Context) (*model.Profile, error)
	Refresh(ctx context.Context) error
	IsLoggedIn() bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	store     SessionStoreInterface
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(store SessionStoreInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		store:     store,
		collector: collector,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerRequest はアカウント作成リクエストのボディ。
type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Gender    string `json:"gender"`
}

// sessionStateResponse はログイン状態のレスポンス。
type sessionStateResponse struct {
	LoggedIn bool `json:"loggedIn"`
}

// Login はログインを処理する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if err := h.store.Login(r.Context(), req.Username, req.Password); err != nil {
		h.collector.RecordLoginFailure()
		middleware.WriteError(w, err)
		return
	}

	h.collector.RecordLoginSuccess()
	writeJSON(w, http.StatusOK, sessionStateResponse{LoggedIn: true})
}

// Register はアカウント作成を処理する。レスポンスにかかわらずログイン状態は変化しない。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	created, err := h.store.Register(r.Context(), shopapi.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Gender:    req.Gender,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Logout はログアウトを処理する。常に成功する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout()
	writeJSON(w, http.StatusOK, sessionStateResponse{LoggedIn: false})
}

// Refresh はトークン更新を処理する。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.collector.RecordSessionRefresh()
	writeJSON(w, http.StatusOK, sessionStateResponse{LoggedIn: h.store.IsLoggedIn()})
}

// Me は現在のプロフィールを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Profile(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeInvalidBodyResponse はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidBodyResponse(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: model.ErrCategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}
