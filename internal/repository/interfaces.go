// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/saezuri/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// username/emailの一意制約違反はmodel.APIError(DUPLICATE_USERNAME)として返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーと、そのユーザーが主体または対象である
	// 全ての関係レコードを同一トランザクションで削除する。
	DeleteByID(ctx context.Context, id string) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// UpdateContent は投稿本文と更新日時を更新する。
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error

	// DeleteByID は投稿と、その投稿を対象とする関係レコード（いいね・リツイート）を
	// 同一トランザクションで削除する。
	DeleteByID(ctx context.Context, id string) error

	// List は投稿一覧を新しい順に返す。offset/limitでページネーションする。
	List(ctx context.Context, offset, limit int) ([]*model.Post, error)

	// ListWithCounts は投稿一覧をオーナー名といいね数・リツイート数付きで新しい順に返す。
	ListWithCounts(ctx context.Context, offset, limit int) ([]model.PostWithCounts, error)
}

// EdgeRepository はソーシャルグラフ関係レコードの永続化インターフェース。
// (subject, object, kind)の一意性はストレージ側の制約が最終防衛線として保証し、
// アプリケーション層の事前チェックは一般的なケースの早期打ち切りに使う。
type EdgeRepository interface {
	// Exists は指定の関係が存在するかどうかを返す。
	Exists(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) (bool, error)

	// Create は関係を作成する。
	// 一意制約違反はmodel.APIError(DUPLICATE_EDGE)として返す。
	Create(ctx context.Context, edge *model.Edge) error

	// Delete は関係を削除する。削除された場合はtrueを返す。
	Delete(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) (bool, error)
}

// TokenRepository は失効トークンの永続化インターフェース。
type TokenRepository interface {
	// Revoke はトークンを失効させる。同一JTIの二重失効は冪等に成功する。
	Revoke(ctx context.Context, token *model.RevokedToken) error

	// IsRevoked は指定JTIが失効済みかどうかを返す。
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpired は有効期限がnowより前の失効レコードを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
