package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storeman/internal/metrics"
	"github.com/hitoshi/storeman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// ストア・サービス
	SessionStore   SessionStoreInterface
	BasketStore    BasketStoreInterface
	CatalogService CatalogServiceInterface
	Notifications  NotificationDrainer

	// 観測
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit(General)
//
// /auth/login には総当たり対策としてログイン専用のレート制限を追加する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	requestLogger := deps.Logger
	if requestLogger == nil {
		requestLogger = slog.Default()
	}
	r.Use(middleware.NewLoggingMiddleware(requestLogger))

	authHandler := NewAuthHandler(deps.SessionStore, deps.Collector)
	basketHandler := NewBasketHandler(deps.BasketStore, deps.CatalogService, deps.Collector)
	productHandler := NewProductHandler(deps.CatalogService)
	notificationHandler := NewNotificationHandler(deps.Notifications)

	// --- レート制限の外のルート ---

	r.Get("/health", healthHandler)

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Route("/auth", func(r chi.Router) {
			// ログインは専用レート制限を追加
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)

			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/me", authHandler.Me)
		})

		// カート
		r.Route("/api/basket", func(r chi.Router) {
			r.Get("/", basketHandler.GetBasket)
			r.Delete("/", basketHandler.ClearBasket)

			r.Post("/items", basketHandler.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Put("/", basketHandler.SetQuantity)
				r.Delete("/", basketHandler.RemoveItem)
			})
		})

		// カタログ
		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})
		r.Get("/api/categories", productHandler.ListCategories)
		r.Get("/api/brands", productHandler.ListBrands)

		// 通知
		r.Get("/api/notifications", notificationHandler.ListNotifications)
	})

	return r
}

// healthHandler は死活監視エンドポイント。
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
