package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/saezuri/internal/gate"
	"github.com/hitoshi/saezuri/internal/metrics"
	"github.com/hitoshi/saezuri/internal/middleware"
)

// HealthChecker はデータベース接続の死活確認を行うインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 受付判定
	Gate      *gate.Gate
	Collector metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ミドルウェア依存
	CORSAllowedOrigin string
	ThrottleRPS       float64
	ThrottleBurst     int
	Logger            *slog.Logger

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface
	PostService PostServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → Throttle → Metrics → Gate(操作クラス別)
//
// 操作クラスの割り当て:
//   - login:   トークン発行・ユーザー登録（匿名、クライアントIP単位）
//   - public:  投稿一覧の公開読み取り（匿名、クライアントIP単位）
//   - general: 認証済みの読み取り・ログアウト
//   - mutate:  投稿・関係レコードへの変更操作
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewThrottleMiddleware(deps.ThrottleRPS, deps.ThrottleBurst))
	r.Use(middleware.NewMetricsMiddleware(deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	postHandler := NewPostHandler(deps.PostService)

	gateLogin := middleware.NewGateMiddleware(deps.Gate, gate.OpLogin, deps.Collector)
	gatePublic := middleware.NewGateMiddleware(deps.Gate, gate.OpPublic, deps.Collector)
	gateGeneral := middleware.NewGateMiddleware(deps.Gate, gate.OpGeneral, deps.Collector)
	gateMutate := middleware.NewGateMiddleware(deps.Gate, gate.OpMutate, deps.Collector)

	// --- 運用エンドポイント（受付判定の対象外） ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 匿名の操作（クライアントIP単位の制限） ---

	r.With(gateLogin).Post("/auth/token", authHandler.Login)
	r.With(gateLogin).Post("/api/users", userHandler.Register)
	r.With(gatePublic).Get("/api/posts", postHandler.List)

	// --- 認証済みの読み取り ---

	r.Group(func(r chi.Router) {
		r.Use(gateGeneral)

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/api/users/me", userHandler.Me)
		r.Get("/api/users/{id}", userHandler.GetUser)
		r.Get("/api/posts/{id}", postHandler.GetPost)
	})

	// --- 変更操作（より厳しい制限） ---

	r.Group(func(r chi.Router) {
		r.Use(gateMutate)

		r.Delete("/api/users/me", userHandler.Withdraw)
		r.Post("/api/users/{id}/follow", userHandler.Follow)
		r.Delete("/api/users/{id}/follow", userHandler.Unfollow)

		r.Post("/api/posts", postHandler.Create)
		r.Patch("/api/posts/{id}", postHandler.Update)
		r.Delete("/api/posts/{id}", postHandler.Delete)

		r.Post("/api/posts/{id}/like", postHandler.Like)
		r.Delete("/api/posts/{id}/like", postHandler.Unlike)
		r.Post("/api/posts/{id}/retweet", postHandler.Retweet)
		r.Delete("/api/posts/{id}/retweet", postHandler.Unretweet)
	})

	return r
}
