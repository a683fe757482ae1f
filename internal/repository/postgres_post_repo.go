package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/saezuri/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, content, created_at, updated_at FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.OwnerID, &post.Content, &post.CreatedAt, &post.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}

	return post, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, owner_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		post.ID, post.OwnerID, post.Content, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

// UpdateContent は投稿本文と更新日時を更新する。
func (r *PostgresPostRepo) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET content = $2, updated_at = $3 WHERE id = $1`,
		id, content, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update post content: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewPostNotFoundError(id)
	}

	return nil
}

// DeleteByID は投稿と、その投稿を対象とする関係レコードを同一トランザクションで削除する。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// いいね・リツイートを削除（edgesのobject_idはFKを張れないため明示的に消す）
	_, err = tx.ExecContext(ctx,
		`DELETE FROM edges WHERE object_id = $1 AND kind IN ('like', 'retweet')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post edges: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewPostNotFoundError(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List は投稿一覧を新しい順に返す。
func (r *PostgresPostRepo) List(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, content, created_at, updated_at
		 FROM posts
		 ORDER BY created_at DESC
		 OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(&post.ID, &post.OwnerID, &post.Content, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// ListWithCounts は投稿一覧をオーナー名といいね数・リツイート数付きで新しい順に返す。
// いいね・リツイートが0件の投稿も結果に含まれる。
func (r *PostgresPostRepo) ListWithCounts(ctx context.Context, offset, limit int) ([]model.PostWithCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.owner_id, p.content, p.created_at, p.updated_at,
		        u.username,
		        COALESCE(l.cnt, 0) AS like_count,
		        COALESCE(rt.cnt, 0) AS retweet_count
		 FROM posts p
		 JOIN users u ON p.owner_id = u.id
		 LEFT JOIN (
		     SELECT object_id, COUNT(*) AS cnt FROM edges WHERE kind = 'like' GROUP BY object_id
		 ) l ON p.id = l.object_id
		 LEFT JOIN (
		     SELECT object_id, COUNT(*) AS cnt FROM edges WHERE kind = 'retweet' GROUP BY object_id
		 ) rt ON p.id = rt.object_id
		 ORDER BY p.created_at DESC
		 OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts with counts: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithCounts
	for rows.Next() {
		var p model.PostWithCounts
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Content, &p.CreatedAt, &p.UpdatedAt,
			&p.OwnerUsername, &p.LikeCount, &p.RetweetCount); err != nil {
			return nil, fmt.Errorf("failed to scan post with counts: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts with counts: %w", err)
	}

	return posts, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
