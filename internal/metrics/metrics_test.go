package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// counterValue は指定した名前とラベル値のカウンタ値を取得する。
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labelValue string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue == "" && len(m.GetLabel()) == 0 {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s (label %q) not found", name, labelValue)
	return 0
}

// TestRecordBasketMutation_IncrementsCounterWithLabel はカート操作カウンタが
// 操作種別ラベル付きで増加することを検証する。
func TestRecordBasketMutation_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBasketMutation("add")
	c.RecordBasketMutation("add")
	c.RecordBasketMutation("clear")

	if got := counterValue(t, reg, "storeman_basket_mutations_total", "add"); got != 2 {
		t.Errorf("basket_mutations_total{operation=add} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "storeman_basket_mutations_total", "clear"); got != 1 {
		t.Errorf("basket_mutations_total{operation=clear} = %v, want 1", got)
	}
}

// TestRecordLogin_IncrementsCounters はログイン成功・失敗カウンタが増加することを検証する。
func TestRecordLogin_IncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()
	c.RecordLoginFailure()

	if got := counterValue(t, reg, "storeman_login_success_total", ""); got != 2 {
		t.Errorf("login_success_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "storeman_login_fail_total", ""); got != 1 {
		t.Errorf("login_fail_total = %v, want 1", got)
	}
}

// TestRecordSessionRefresh_IncrementsCounter はトークン更新カウンタが増加することを検証する。
func TestRecordSessionRefresh_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionRefresh()
	c.RecordSessionRefresh()
	c.RecordSessionRefresh()

	if got := counterValue(t, reg, "storeman_session_refresh_total", ""); got != 3 {
		t.Errorf("session_refresh_total = %v, want 3", got)
	}
}

// TestRecordShopAPIStatus_IncrementsCounterWithLabel はショップAPIステータスカウンタが
// ステータスコードラベル付きで増加することを検証する。
func TestRecordShopAPIStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordShopAPIStatus(200)
	c.RecordShopAPIStatus(200)
	c.RecordShopAPIStatus(502)

	if got := counterValue(t, reg, "storeman_shop_api_status_total", "200"); got != 2 {
		t.Errorf("shop_api_status_total{status_code=200} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "storeman_shop_api_status_total", "502"); got != 1 {
		t.Errorf("shop_api_status_total{status_code=502} = %v, want 1", got)
	}
}

// TestRecordShopAPILatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordShopAPILatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordShopAPILatency(100 * time.Millisecond)
	c.RecordShopAPILatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "storeman_shop_api_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("storeman_shop_api_latency_seconds metric not found")
	}
}

// TestRecordNotification_IncrementsCounterWithLabel は通知カウンタがレベルラベル付きで
// 増加することを検証する。
func TestRecordNotification_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNotification("success")
	c.RecordNotification("error")
	c.RecordNotification("error")

	if got := counterValue(t, reg, "storeman_notifications_total", "success"); got != 1 {
		t.Errorf("notifications_total{level=success} = %v, want 1", got)
	}
	if got := counterValue(t, reg, "storeman_notifications_total", "error"); got != 2 {
		t.Errorf("notifications_total{level=error} = %v, want 2", got)
	}
}
