package repository

import (
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/saezuri/internal/model"
)

// 各リポジトリが対応するインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ PostRepository = (*PostgresPostRepo)(nil)
	var _ EdgeRepository = (*PostgresEdgeRepo)(nil)
	var _ TokenRepository = (*PostgresTokenRepo)(nil)
}

// 各コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("NewPostgresUserRepo returned nil")
	}
	if NewPostgresPostRepo(nil) == nil {
		t.Error("NewPostgresPostRepo returned nil")
	}
	if NewPostgresEdgeRepo(nil) == nil {
		t.Error("NewPostgresEdgeRepo returned nil")
	}
	if NewPostgresTokenRepo(nil) == nil {
		t.Error("NewPostgresTokenRepo returned nil")
	}
}

// 一意制約違反の判定がpqのエラーコード23505にのみ反応することを検証
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "一意制約違反",
			err:  &pq.Error{Code: pq.ErrorCode("23505")},
			want: true,
		},
		{
			name: "外部キー制約違反",
			err:  &pq.Error{Code: pq.ErrorCode("23503")},
			want: false,
		},
		{
			name: "pq以外のエラー",
			err:  model.NewUserNotFoundError("x"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 失効レコードの保持期限の考え方: expires_atを過ぎた行は削除対象になる
func TestRevokedToken_ExpiryConcept(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	token := &model.RevokedToken{
		JTI:       "jti-1",
		UserID:    "user-1",
		ExpiresAt: now.Add(-time.Hour),
		RevokedAt: now.Add(-2 * time.Hour),
	}

	if !token.ExpiresAt.Before(now) {
		t.Error("expected token to be past its expiry")
	}
}
