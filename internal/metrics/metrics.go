// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストアやクライアント層から利用する。
type MetricsCollector interface {
	RecordBasketMutation(operation string)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSessionRefresh()
	RecordShopAPIStatus(statusCode int)
	RecordShopAPILatency(duration time.Duration)
	RecordNotification(level string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	basketMutations *prometheus.CounterVec
	loginSuccess    prometheus.Counter
	loginFail       prometheus.Counter
	sessionRefresh  prometheus.Counter
	shopAPIStatus   *prometheus.CounterVec
	shopAPILatency  prometheus.Histogram
	notifications   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		basketMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeman_basket_mutations_total",
			Help: "カート操作の合計数（操作種別ごと）",
		}, []string{"operation"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeman_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeman_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		sessionRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeman_session_refresh_total",
			Help: "セッショントークン更新の合計数",
		}),
		shopAPIStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeman_shop_api_status_total",
			Help: "ショップAPIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		shopAPILatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storeman_shop_api_latency_seconds",
			Help:    "ショップAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeman_notifications_total",
			Help: "発行されたユーザー向け通知の合計数（レベルごと）",
		}, []string{"level"}),
	}

	reg.MustRegister(
		c.basketMutations,
		c.loginSuccess,
		c.loginFail,
		c.sessionRefresh,
		c.shopAPIStatus,
		c.shopAPILatency,
		c.notifications,
	)

	return c
}

// RecordBasketMutation はカート操作（add, remove, set_quantity, clear）を記録する。
func (c *Collector) RecordBasketMutation(operation string) {
	c.basketMutations.WithLabelValues(operation).Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordSessionRefresh はセッショントークンの更新を記録する。
func (c *Collector) RecordSessionRefresh() {
	c.sessionRefresh.Inc()
}

// RecordShopAPIStatus はショップAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordShopAPIStatus(statusCode int) {
	c.shopAPIStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordShopAPILatency はショップAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordShopAPILatency(duration time.Duration) {
	c.shopAPILatency.Observe(duration.Seconds())
}

// RecordNotification は発行された通知をレベル（success, error）ごとに記録する。
func (c *Collector) RecordNotification(level string) {
	c.notifications.WithLabelValues(level).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
