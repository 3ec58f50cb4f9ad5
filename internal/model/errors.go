// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, basket, shop, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLoginFailed          = "LOGIN_FAILED"
	ErrCodeMalformedCredentials = "MALFORMED_CREDENTIALS"
	ErrCodeNoRefreshToken       = "NO_REFRESH_TOKEN"
	ErrCodeNoSession            = "NO_SESSION"
	ErrCodeRefreshFailed        = "REFRESH_FAILED"
	ErrCodeProfileFetchFailed   = "PROFILE_FETCH_FAILED"
	ErrCodeRegisterFailed       = "REGISTER_FAILED"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeShopAPIFailed        = "SHOP_API_FAILED"
	ErrCodeCatalogUnavailable   = "CATALOG_UNAVAILABLE"
)

// エラーカテゴリ。HTTPレスポンスのステータス決定とUI表示に使用する。
const (
	ErrCategoryAuth       = "auth"
	ErrCategoryValidation = "validation"
	ErrCategoryBasket     = "basket"
	ErrCategoryShop       = "shop"
	ErrCategorySystem     = "system"
)

// IsCode はerrがAPIErrorであり、指定コードを持つかどうかを返す。
// ラップされたエラーチェーンも辿る。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// reasonには外部ショップAPIのエラーメッセージ等を渡す。
func NewLoginFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  fmt.Sprintf("ログインに失敗しました: %s", reason),
		Category: ErrCategoryAuth,
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewMalformedCredentialsError はトークンを欠いた認証レスポンスに対するエラーを生成する。
// アクセストークンとリフレッシュトークンの両方が揃わない限りセッションは確立しない。
func NewMalformedCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeMalformedCredentials,
		Message:  "認証レスポンスが不正です。トークンが含まれていません。",
		Category: ErrCategoryAuth,
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// NewNoRefreshTokenError はリフレッシュトークン未保持エラーを生成する。
func NewNoRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeNoRefreshToken,
		Message:  "リフレッシュトークンがありません。",
		Category: ErrCategoryValidation,
		Action:   "ログインし直してください。",
	}
}

// NewNoSessionError はセッション未確立を表すエラーを生成する。
// ログインしていない状態でのプロフィール取得はエラーではなく
// 「セッションなし」として扱われる（ストアの失敗ではない）。
func NewNoSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSession,
		Message:  "ログインしていません。",
		Category: ErrCategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewRefreshFailedError はトークンリフレッシュ失敗エラーを生成する。
func NewRefreshFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRefreshFailed,
		Message:  fmt.Sprintf("トークンの更新に失敗しました: %s", reason),
		Category: ErrCategoryAuth,
		Action:   "ログインし直してください。",
	}
}

// NewProfileFetchFailedError はプロフィール取得失敗エラーを生成する。
func NewProfileFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileFetchFailed,
		Message:  fmt.Sprintf("プロフィールの取得に失敗しました: %s", reason),
		Category: ErrCategoryAuth,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRegisterFailedError はアカウント作成失敗エラーを生成する。
func NewRegisterFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRegisterFailed,
		Message:  fmt.Sprintf("アカウントの作成に失敗しました: %s", reason),
		Category: ErrCategoryAuth,
		Action:   "入力内容を確認してください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID int) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %d", productID),
		Category: ErrCategoryBasket,
		Action:   "商品IDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト内容の検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: ErrCategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewShopAPIFailedError は外部ショップAPIの呼び出し失敗エラーを生成する。
// messageには可能な限り外部APIが返した人間可読なメッセージを渡す。
func NewShopAPIFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeShopAPIFailed,
		Message:  fmt.Sprintf("ショップAPIの呼び出しに失敗しました: %s", message),
		Category: ErrCategoryShop,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCatalogUnavailableError はカタログ未取得エラーを生成する。
func NewCatalogUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogUnavailable,
		Message:  "商品カタログを取得できませんでした。",
		Category: ErrCategoryShop,
		Action:   "しばらく待ってから再度お試しください。",
	}
}
