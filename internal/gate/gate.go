// Package gate は認証とレート制限を合成したリクエスト受付判定を提供する。
//
// ルーティング層が直接呼ぶのはこのパッケージだけで、判定結果の
// (主体, レート判定, エラー)をHTTPレスポンスに写像するのはルーティング層の責務。
// ここでは永続化に一切触れない。
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/saezuri/internal/model"
	"github.com/hitoshi/saezuri/internal/ratelimit"
)

// OperationClass はレート制限の対象となる操作クラスを表す。
type OperationClass string

const (
	// OpGeneral は認証済みユーザーの一般的な読み書き。
	OpGeneral OperationClass = "general"
	// OpMutate はグラフ・投稿への変更操作。一般より厳しい制限をかける。
	OpMutate OperationClass = "mutate"
	// OpLogin はログイン・ユーザー登録。クライアントキー単位で制限する。
	OpLogin OperationClass = "login"
	// OpPublic は匿名の公開読み取り。クライアントキー単位で制限する。
	OpPublic OperationClass = "public"
)

// Anonymous はこの操作クラスが認証を要求しないかどうかを返す。
func (op OperationClass) Anonymous() bool {
	return op == OpLogin || op == OpPublic
}

// Authenticator はリクエストの主体解決に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type Authenticator interface {
	Authenticate(ctx context.Context, credential string, now time.Time) (*model.User, error)
}

// Gate は操作クラスごとのリミッターと認証を束ねる。
type Gate struct {
	authenticator Authenticator
	limiters      map[OperationClass]*ratelimit.Limiter
}

// New はGateを生成する。
// quotasにない操作クラスの判定はエラーになるため、全クラス分を渡すこと。
func New(authenticator Authenticator, quotas map[OperationClass]ratelimit.Quota) *Gate {
	limiters := make(map[OperationClass]*ratelimit.Limiter, len(quotas))
	for op, quota := range quotas {
		limiters[op] = ratelimit.NewLimiter(ratelimit.DefaultConfig(quota))
	}

	return &Gate{
		authenticator: authenticator,
		limiters:      limiters,
	}
}

// Stop は全リミッターのバックグラウンド処理を停止する。
func (g *Gate) Stop() {
	for _, l := range g.limiters {
		l.Stop()
	}
}

// AdmitAndAuthenticate は1リクエストの受付判定を行う。
//
// 認証を要求する操作クラスでは先に認証を解決し、認証失敗はレート制限の
// 枠を消費せずに即座に返る。レートキーには認証済みユーザーIDを使う。
// 匿名の操作クラスでは認証を行わず、clientKey（クライアントIP等）をキーに使う。
//
// 拒否はすべて*model.APIErrorとして返り、レート超過の場合はDecisionに
// RetryAfter等の詳細が入る。
func (g *Gate) AdmitAndAuthenticate(
	ctx context.Context,
	op OperationClass,
	credential, clientKey string,
	now time.Time,
) (*model.User, ratelimit.Decision, error) {
	limiter, ok := g.limiters[op]
	if !ok {
		return nil, ratelimit.Decision{}, fmt.Errorf("no rate limit quota configured for operation class %q", op)
	}

	if op.Anonymous() {
		decision := limiter.Admit(clientKey, now)
		if !decision.Allowed {
			return nil, decision, model.NewRateExceededError(decision.RetryAfter)
		}
		return nil, decision, nil
	}

	user, err := g.authenticator.Authenticate(ctx, credential, now)
	if err != nil {
		return nil, ratelimit.Decision{}, err
	}

	decision := limiter.Admit(user.ID, now)
	if !decision.Allowed {
		return nil, decision, model.NewRateExceededError(decision.RetryAfter)
	}

	return user, decision, nil
}
