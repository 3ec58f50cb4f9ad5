// Package shopapi は外部ショップAPI（サードパーティのデモREST API）の
// クライアントを提供する。認証、プロフィール取得、アカウント作成、
// 商品カタログの各エンドポイントを呼び出す。
// APIの契約は固定されたものであり、本リポジトリで設計したものではない。
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/storeman/internal/model"
)

// ErrTokenInvalid はアクセストークンが無効または期限切れと
// 判定されたことを表す。呼び出し元はこのエラーを契機に
// 1回限りのリフレッシュを試みることができる。
var ErrTokenInvalid = errors.New("shopapi: access token invalid or expired")

// maxResponseBody はレスポンスボディの最大読み取りサイズ。
const maxResponseBody = 1 << 20 // 1MiB

// APIMetrics は外部API呼び出しの観測フック。
type APIMetrics interface {
	RecordShopAPIStatus(statusCode int)
	RecordShopAPILatency(duration time.Duration)
}

// Client は外部ショップAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string     // テスト用にエンドポイントを差し替え可能
	collector  APIMetrics // nilの場合は記録しない
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// SetCollector は呼び出しごとのステータスとレイテンシの記録先を設定する。
func (c *Client) SetCollector(collector APIMetrics) {
	c.collector = collector
}

// do はリクエストを実行し、レイテンシと応答ステータスを記録する。
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.collector != nil {
		c.collector.RecordShopAPILatency(time.Since(start))
		if err == nil {
			c.collector.RecordShopAPIStatus(resp.StatusCode)
		}
	}
	return resp, err
}

// Login は認証エンドポイントを呼び出す。
// レスポンスにアクセストークンとリフレッシュトークンの両方が
// 含まれているかどうかの検証は呼び出し元（セッションストア）が行う。
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var resp loginResponse
	if err := c.postJSON(ctx, "/auth/login", body, &resp); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Profile: model.Profile{
			ID:        resp.ID,
			Username:  resp.Username,
			Email:     resp.Email,
			FirstName: resp.FirstName,
			LastName:  resp.LastName,
			Gender:    resp.Gender,
			Image:     resp.Image,
		},
	}, nil
}

// Refresh はリフレッシュエンドポイントを呼び出し、新しいトークンの組を取得する。
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{
		"refreshToken": refreshToken,
	}

	var pair TokenPair
	if err := c.postJSON(ctx, "/auth/refresh", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Me は現在のアクセストークンでプロフィールを取得する。
// 401/403はトークン無効と分類し、ErrTokenInvalidをラップしたエラーを返す。
func (c *Client) Me(ctx context.Context, accessToken string) (*model.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("failed to call shop api",
			slog.String("path", "/auth/me"),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ショップAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrTokenInvalid, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError("/auth/me", resp)
	}

	var profile model.Profile
	if err := decodeBody(resp.Body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Register はアカウント作成エンドポイントを呼び出す。
//
// 重要: この外部デモAPIで作成されたアカウントは実際には保存されず、
// 以後のログインに使用することはできない。これは外部サービス側の
// 仕様であり、本クライアントの不具合ではない。成功は単に
// 「アカウント作成リクエストが受理された」ことのみを意味する。
func (c *Client) Register(ctx context.Context, user NewUser) (*model.Profile, error) {
	var resp loginResponse
	if err := c.postJSON(ctx, "/users/add", user, &resp); err != nil {
		return nil, err
	}

	return &model.Profile{
		ID:        resp.ID,
		Username:  resp.Username,
		Email:     resp.Email,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
		Gender:    resp.Gender,
		Image:     resp.Image,
	}, nil
}

// postJSON はJSONボディ付きのPOSTリクエストを実行し、レスポンスをデコードする。
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("failed to call shop api",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ショップAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(path, resp)
	}

	return decodeBody(resp.Body, out)
}

// getJSON はGETリクエストを実行し、レスポンスをデコードする。
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("failed to call shop api",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ショップAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(path, resp)
	}

	return decodeBody(resp.Body, out)
}

// StatusError は外部ショップAPIの非成功ステータスレスポンスを表す。
// Messageにはボディのmessage/errorフィールドから取り出した
// 人間可読メッセージが入る（取り出せない場合は空）。
type StatusError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ショップAPIがステータス %d を返しました", e.StatusCode)
	}
	return fmt.Sprintf("ショップAPIがステータス %d を返しました: %s", e.StatusCode, e.Message)
}

// isStatusError はerrが指定ステータスコードのStatusErrorかどうかを返す。
func isStatusError(err error, statusCode int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == statusCode
}

// statusError は非成功ステータスのレスポンスからStatusErrorを組み立てる。
func (c *Client) statusError(path string, resp *http.Response) error {
	message := extractMessage(resp.Body)

	c.logger.Error("shop api returned error status",
		slog.String("path", path),
		slog.Int("http_status", resp.StatusCode),
		slog.String("message", message),
	)

	return &StatusError{StatusCode: resp.StatusCode, Message: message}
}

// extractMessage はエラーレスポンスのボディからmessage/errorフィールドを取り出す。
// ボディが読めない・JSONでない場合は空文字を返す（エラーにしない）。
func extractMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBody))
	if err != nil {
		return ""
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// decodeBody はレスポンスボディをJSONとしてデコードする。
func decodeBody(r io.Reader, out any) error {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBody))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}
