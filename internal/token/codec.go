// Package token は署名付きアイデンティティトークンの発行と検証を提供する。
//
// トークンはHS256で署名されたJWTで、subjectクレームにユーザーIDを持つ。
// 改ざんされたトークンは署名検証で、期限切れのトークンはexpクレームで弾かれ、
// 両者は呼び出し側が区別できる別種のエラーとして返される。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/saezuri/internal/model"
)

// 検証失敗の種別。呼び出し側はerrors.Isで区別する。
var (
	// ErrTokenInvalid は署名不正・形式不正・アルゴリズム不一致を表す。
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired は署名は正当だが有効期限が経過していることを表す。
	ErrTokenExpired = errors.New("token is expired")
)

// Claims はトークンに埋め込むクレームを表す。
type Claims struct {
	jwt.RegisteredClaims
	// Role はユーザーの権限区分。
	Role model.Role `json:"role"`
}

// Codec はトークンのエンコード・デコードを行う。
// クロックを注入することで有効期限の判定をテストで決定的にできる。
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec はCodecを生成する。
// secretはプロセス全体で共有する署名鍵、ttlはトークンの有効期間。
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL はトークンの有効期間を返す。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode はsubjectとroleを埋め込んだ署名付きトークンを発行する。
// 有効期限はnow + TTL。入力と鍵とクロック以外に依存しない純粋な処理。
func (c *Codec) Encode(subject string, role model.Role, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Role: role,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode はトークンを検証してクレームを返す。
// 署名不正・形式不正はErrTokenInvalid、期限切れはErrTokenExpiredを返す。
// 期限切れの判定には引数のnowを使用する。
func (c *Codec) Decode(raw string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrTokenInvalid)
	}

	return claims, nil
}
