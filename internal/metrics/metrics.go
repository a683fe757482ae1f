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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordAuthFailure(kind string)
	RecordRateLimitRejection(class string)
	RecordGuardDenial(code string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordTokensRevoked(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authFail       *prometheus.CounterVec
	rateLimitRej   *prometheus.CounterVec
	guardDenial    *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	tokensRevoked  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saezuri_auth_fail_total",
			Help: "認証失敗の種別ごとの合計数",
		}, []string{"kind"}),
		rateLimitRej: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saezuri_rate_limit_rejection_total",
			Help: "レート制限による拒否の操作クラスごとの合計数",
		}, []string{"class"}),
		guardDenial: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saezuri_guard_denial_total",
			Help: "グラフガードによる拒否のエラーコードごとの合計数",
		}, []string{"code"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saezuri_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "saezuri_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saezuri_tokens_revoked_total",
			Help: "失効処理されたトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.authFail,
		c.rateLimitRej,
		c.guardDenial,
		c.httpStatus,
		c.requestLatency,
		c.tokensRevoked,
	)

	return c
}

// RecordAuthFailure は認証失敗を種別（no_credential, bad_credential, expired等）付きで記録する。
func (c *Collector) RecordAuthFailure(kind string) {
	c.authFail.WithLabelValues(kind).Inc()
}

// RecordRateLimitRejection はレート制限による拒否を操作クラス付きで記録する。
func (c *Collector) RecordRateLimitRejection(class string) {
	c.rateLimitRej.WithLabelValues(class).Inc()
}

// RecordGuardDenial はグラフガードによる拒否をエラーコード付きで記録する。
func (c *Collector) RecordGuardDenial(code string) {
	c.guardDenial.WithLabelValues(code).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordTokensRevoked は失効処理されたトークン数を記録する。
func (c *Collector) RecordTokensRevoked(count int) {
	c.tokensRevoked.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
