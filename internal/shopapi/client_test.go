package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(server *httptest.Server) *Client {
	var buf bytes.Buffer
	return NewClient(server.Client(), newTestLogger(&buf), server.URL)
}

func TestClient_Login_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if r.URL.Path != "/auth/login" {
			t.Errorf("パス = %s, want /auth/login", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("リクエストボディのデコードに失敗した: %v", err)
		}
		if body["username"] != "emilys" || body["password"] != "emilyspass" {
			t.Errorf("リクエストボディが想定と異なる: %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":           1,
			"username":     "emilys",
			"email":        "emily@example.com",
			"firstName":    "Emily",
			"lastName":     "Johnson",
			"gender":       "female",
			"accessToken":  "A",
			"refreshToken": "R",
		})
	}))
	defer server.Close()

	c := newTestClient(server)

	result, err := c.Login(context.Background(), "emilys", "emilyspass")
	if err != nil {
		t.Fatalf("Login がエラーを返した: %v", err)
	}
	if result.AccessToken != "A" || result.RefreshToken != "R" {
		t.Errorf("トークン = (%s, %s), want (A, R)", result.AccessToken, result.RefreshToken)
	}
	if result.Profile.ID != 1 || result.Profile.Username != "emilys" {
		t.Errorf("プロフィールが想定と異なる: %+v", result.Profile)
	}
}

func TestClient_Login_ErrorMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Login(context.Background(), "emilys", "wrong")
	if err == nil {
		t.Fatal("非成功ステータス時にエラーが返されるべき")
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("エラーにボディのmessageが含まれるべき: %v", err)
	}
}

func TestClient_Login_ErrorFieldFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Login(context.Background(), "a", "b")
	if err == nil || !strings.Contains(err.Error(), "bad request") {
		t.Errorf("messageが無い場合はerrorフィールドを使うべき: %v", err)
	}
}

func TestClient_Login_GenericFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Login(context.Background(), "a", "b")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("ボディが読めない場合はステータスを含む汎用メッセージであるべき: %v", err)
	}
}

func TestClient_Refresh_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh" {
			t.Errorf("パス = %s, want /auth/refresh", r.URL.Path)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != "R1" {
			t.Errorf("refreshToken = %s, want R1", body["refreshToken"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accessToken":"A2","refreshToken":"R2"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	pair, err := c.Refresh(context.Background(), "R1")
	if err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}
	if pair.AccessToken != "A2" || pair.RefreshToken != "R2" {
		t.Errorf("トークンの組 = %+v, want (A2, R2)", pair)
	}
}

func TestClient_Me_SendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer A1" {
			t.Errorf("Authorizationヘッダー = %s, want Bearer A1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"username":"emilys","email":"emily@example.com","firstName":"Emily","lastName":"Johnson"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	profile, err := c.Me(context.Background(), "A1")
	if err != nil {
		t.Fatalf("Me がエラーを返した: %v", err)
	}
	if profile.Username != "emilys" {
		t.Errorf("username = %s, want emilys", profile.Username)
	}
}

func TestClient_Me_TokenInvalidClassification(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := newTestClient(server)

		_, err := c.Me(context.Background(), "expired")
		if !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ステータス %d はErrTokenInvalidに分類されるべき: got %v", status, err)
		}

		server.Close()
	}
}

func TestClient_Me_OtherErrorNotTokenInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Me(context.Background(), "A1")
	if err == nil {
		t.Fatal("500レスポンスはエラーを返すべき")
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Error("500はトークン無効に分類されるべきではない")
	}
}

func TestClient_Register_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/add" {
			t.Errorf("パス = %s, want /users/add", r.URL.Path)
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "newuser" {
			t.Errorf("username = %v, want newuser", body["username"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":101,"username":"newuser"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	created, err := c.Register(context.Background(), NewUser{
		FirstName: "New",
		LastName:  "User",
		Username:  "newuser",
		Email:     "new@example.com",
		Password:  "secret1",
		Gender:    "male",
	})
	if err != nil {
		t.Fatalf("Register がエラーを返した: %v", err)
	}
	if created.ID != 101 {
		t.Errorf("作成レコードのID = %d, want 101", created.ID)
	}
}

func TestClient_Products_MapsWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("パス = %s, want /products", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"products": [
				{"id":1,"title":"Wooden Chair","price":49.5,"thumbnail":"chair.jpg","images":["a.jpg","b.jpg"],"category":"Wooden","brand":"Oakly","discountPercentage":10},
				{"id":2,"name":"Steel Lamp","price":25,"image":"lamp.jpg","category":"Lighting","isNew":true}
			],
			"total": 2
		}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	products, err := c.Products(context.Background())
	if err != nil {
		t.Fatalf("Products がエラーを返した: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("商品数 = %d, want 2", len(products))
	}

	// title/thumbnail形式からのフォールバック
	if products[0].Name != "Wooden Chair" {
		t.Errorf("商品1の名前 = %s, want Wooden Chair", products[0].Name)
	}
	if products[0].Image != "chair.jpg" {
		t.Errorf("商品1の画像 = %s, want chair.jpg", products[0].Image)
	}
	if products[0].HoverImage != "b.jpg" {
		t.Errorf("商品1のホバー画像 = %s, want b.jpg", products[0].HoverImage)
	}
	if !products[0].IsSale {
		t.Error("割引率が正の商品はセール扱いであるべき")
	}
	if !products[0].OldPrice.Equal(products[0].Price) {
		t.Errorf("旧価格 = %s, want 現在価格と同じ", products[0].OldPrice)
	}

	// name/image形式はそのまま
	if products[1].Name != "Steel Lamp" || products[1].Image != "lamp.jpg" {
		t.Errorf("商品2のマッピングが想定と異なる: %+v", products[1])
	}
	if !products[1].IsNew {
		t.Error("isNewフラグが維持されるべき")
	}
	if products[1].IsSale {
		t.Error("割引のない商品はセール扱いであるべきではない")
	}
}

func TestClient_Product_NotFoundReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Product not found"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	product, err := c.Product(context.Background(), 9999)
	if err != nil {
		t.Fatalf("404はエラーではなくnilを返すべき: %v", err)
	}
	if product != nil {
		t.Errorf("存在しない商品はnilであるべき: %+v", product)
	}
}

func TestClient_InvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	c := newTestClient(server)

	if _, err := c.Login(context.Background(), "a", "b"); err == nil {
		t.Error("不正JSONレスポンス時にエラーが返されるべき")
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // 即座にキャンセル

	_, err := c.Login(ctx, "a", "b")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled エラーであるべき: got %v", err)
	}
}

// mockAPIMetrics はAPIMetricsのモック。
type mockAPIMetrics struct {
	statuses  []int
	latencies int
}

func (m *mockAPIMetrics) RecordShopAPIStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockAPIMetrics) RecordShopAPILatency(duration time.Duration) {
	m.latencies++
}

func TestClient_RecordsStatusAndLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server)
	collector := &mockAPIMetrics{}
	c.SetCollector(collector)

	if _, err := c.Refresh(context.Background(), "R"); err == nil {
		t.Fatal("エラーが返ること")
	}

	if len(collector.statuses) != 1 || collector.statuses[0] != http.StatusBadGateway {
		t.Errorf("記録されたステータス = %v, want [502]", collector.statuses)
	}
	if collector.latencies != 1 {
		t.Errorf("レイテンシ記録回数 = %d, want 1", collector.latencies)
	}
}

// TestClient_DispatchesExactlyOneRequestPerCall は1回のAPI呼び出しが
// ちょうど1回のHTTPリクエストとして送出されることを検証する。
func TestClient_DispatchesExactlyOneRequestPerCall(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "username": "emilys",
			"accessToken": "A", "refreshToken": "R",
		})
	}))
	defer server.Close()

	c := newTestClient(server)

	if _, err := c.Login(context.Background(), "emilys", "emilyspass"); err != nil {
		t.Fatalf("Login がエラーを返した: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("HTTPリクエスト数 = %d, want 1", got)
	}
}

// TestClient_ResponseBodyBounded は上限(1MiB)を超えるレスポンスボディが
// 全量読み込まれず、エラーとして扱われることを検証する。
func TestClient_ResponseBodyBounded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 上限を超える位置でJSONが打ち切られるため、パースは必ず失敗する
		w.Write([]byte(`{"accessToken":"`))
		w.Write(bytes.Repeat([]byte("a"), maxResponseBody+1024))
		w.Write([]byte(`","refreshToken":"R"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	if _, err := c.Refresh(context.Background(), "R"); err == nil {
		t.Fatal("上限超過のレスポンスはエラーになるべき")
	}
}
