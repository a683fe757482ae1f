package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/saezuri/internal/gate"
	"github.com/hitoshi/saezuri/internal/metrics"
	"github.com/hitoshi/saezuri/internal/model"
)

// authFailureKinds はメトリクス用に認証エラーコードを種別ラベルへ写像する。
var authFailureKinds = map[string]string{
	"NO_CREDENTIAL":  "no_credential",
	"BAD_CREDENTIAL": "bad_credential",
	"TOKEN_EXPIRED":  "expired",
}

// NewGateMiddleware は指定の操作クラスでリクエスト受付判定を行うミドルウェアを返す。
//
// 認証を要求する操作クラスでは認証済みユーザーをコンテキストに注入する。
// 拒否時は統一エラーフォーマットで応答し、レート超過にはRetry-Afterヘッダーを付与する。
func NewGateMiddleware(g *gate.Gate, op gate.OperationClass, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := r.Header.Get("Authorization")
			clientKey := clientIP(r)

			user, decision, err := g.AdmitAndAuthenticate(r.Context(), op, credential, clientKey, time.Now())
			if err != nil {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) {
					slog.Error("gate admission failed",
						slog.String("error", err.Error()),
						slog.String("path", r.URL.Path),
					)
					WriteInternalServerError(w)
					return
				}

				if collector != nil {
					switch apiErr.Code {
					case "RATE_EXCEEDED":
						collector.RecordRateLimitRejection(string(op))
					default:
						if kind, ok := authFailureKinds[apiErr.Code]; ok {
							collector.RecordAuthFailure(kind)
						}
					}
				}

				slog.Warn("request rejected",
					slog.String("code", apiErr.Code),
					slog.String("class", string(op)),
					slog.String("path", r.URL.Path),
				)
				WriteAPIError(w, apiErr)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if user != nil {
				r = r.WithContext(ContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP はリクエスト元のクライアントIPを返す。
// リバースプロキシ配下ではX-Forwarded-Forの先頭を信頼する。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
