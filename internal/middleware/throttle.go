package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewThrottleMiddleware はプロセス全体の流量を制御するミドルウェアを返す。
//
// ユーザー単位の受付判定より手前に置き、過負荷時のバーストを平準化する。
// こちらはトークンバケット方式で、ユーザー単位の観測窓方式とは独立に動作する。
func NewThrottleMiddleware(rps float64, burst int) func(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				slog.Warn("process-wide throttle engaged",
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				http.Error(w, "service overloaded", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewTimeoutMiddleware はリクエスト処理全体にタイムアウトを設定するミドルウェアを返す。
func NewTimeoutMiddleware(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "request timed out")
	}
}
