package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定名のカウンタ値を取得する。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total, true
		}
	}
	return 0, false
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordAuthFailure_IncrementsCounterWithLabel は認証失敗カウンタが種別ラベル付きで増加することを検証する。
func TestRecordAuthFailure_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthFailure("bad_credential")
	c.RecordAuthFailure("bad_credential")
	c.RecordAuthFailure("expired")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "saezuri_auth_fail_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 labeled metrics, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "bad_credential":
					if val != 2 {
						t.Errorf("bad_credential = %v, want 2", val)
					}
				case "expired":
					if val != 1 {
						t.Errorf("expired = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("saezuri_auth_fail_total metric not found")
	}
}

// TestRecordRateLimitRejection_IncrementsCounter はレート制限拒否カウンタが増加することを検証する。
func TestRecordRateLimitRejection_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRateLimitRejection("mutate")
	c.RecordRateLimitRejection("mutate")
	c.RecordRateLimitRejection("public")

	val, found := counterValue(t, reg, "saezuri_rate_limit_rejection_total")
	if !found {
		t.Fatal("saezuri_rate_limit_rejection_total metric not found")
	}
	if val != 3 {
		t.Errorf("rate_limit_rejection_total = %v, want 3", val)
	}
}

// TestRecordGuardDenial_IncrementsCounter はガード拒否カウンタが増加することを検証する。
func TestRecordGuardDenial_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGuardDenial("NOT_OWNER")
	c.RecordGuardDenial("DUPLICATE_EDGE")

	val, found := counterValue(t, reg, "saezuri_guard_denial_total")
	if !found {
		t.Fatal("saezuri_guard_denial_total metric not found")
	}
	if val != 2 {
		t.Errorf("guard_denial_total = %v, want 2", val)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(429)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != "saezuri_http_status_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			label := m.GetLabel()[0].GetValue()
			val := m.GetCounter().GetValue()
			switch label {
			case "200":
				if val != 2 {
					t.Errorf("status 200 = %v, want 2", val)
				}
			case "429":
				if val != 1 {
					t.Errorf("status 429 = %v, want 1", val)
				}
			default:
				t.Errorf("unexpected label: %s", label)
			}
		}
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシヒストグラムが記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(50 * time.Millisecond)
	c.RecordRequestLatency(150 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "saezuri_request_latency_seconds" {
			found = true
			count := mf.GetMetric()[0].GetHistogram().GetSampleCount()
			if count != 2 {
				t.Errorf("sample count = %d, want 2", count)
			}
		}
	}
	if !found {
		t.Error("saezuri_request_latency_seconds metric not found")
	}
}

// TestRecordTokensRevoked_AddsToCounter は失効トークンカウンタが加算されることを検証する。
func TestRecordTokensRevoked_AddsToCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokensRevoked(5)
	c.RecordTokensRevoked(3)

	val, found := counterValue(t, reg, "saezuri_tokens_revoked_total")
	if !found {
		t.Fatal("saezuri_tokens_revoked_total metric not found")
	}
	if val != 8 {
		t.Errorf("tokens_revoked_total = %v, want 8", val)
	}
}
