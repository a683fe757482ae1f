package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/saezuri/internal/metrics"
)

// guardDenialCodes はグラフ整合性ルールによる拒否を表すエラーコード。
var guardDenialCodes = map[string]bool{
	"NOT_OWNER":           true,
	"SELF_REFERENCE":      true,
	"DUPLICATE_EDGE":      true,
	"EDGE_NOT_FOUND":      true,
	"EDIT_WINDOW_EXPIRED": true,
}

// apiErrorRecorder はWriteAPIErrorが書き込んだエラーコードの通知を受け取る。
type apiErrorRecorder interface {
	recordAPIErrorCode(code string)
}

// metricsRecorder はhttp.ResponseWriterをラップし、
// ステータスコードとAPIエラーコードをコレクターに記録する。
type metricsRecorder struct {
	http.ResponseWriter
	collector  metrics.MetricsCollector
	statusCode int
	written    bool
}

func (mr *metricsRecorder) WriteHeader(code int) {
	if !mr.written {
		mr.statusCode = code
		mr.written = true
	}
	mr.ResponseWriter.WriteHeader(code)
}

func (mr *metricsRecorder) Write(b []byte) (int, error) {
	if !mr.written {
		mr.statusCode = http.StatusOK
		mr.written = true
	}
	return mr.ResponseWriter.Write(b)
}

func (mr *metricsRecorder) recordAPIErrorCode(code string) {
	if guardDenialCodes[code] {
		mr.collector.RecordGuardDenial(code)
	}
}

// NewMetricsMiddleware はリクエストごとにHTTPステータスとレイテンシを
// コレクターに記録するミドルウェアを生成する。
// グラフ整合性ルールによる拒否はWriteAPIError経由でコード別に記録される。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if collector == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &metricsRecorder{
				ResponseWriter: w,
				collector:      collector,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestLatency(time.Since(start))
		})
	}
}
