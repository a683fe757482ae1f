package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/saezuri/internal/model"
)

// PostgresEdgeRepo はPostgreSQLを使用した関係レコードリポジトリ。
// (subject_id, object_id, kind)の複合主キーが重複作成の最終防衛線となる。
type PostgresEdgeRepo struct {
	db *sql.DB
}

// NewPostgresEdgeRepo はPostgresEdgeRepoを生成する。
func NewPostgresEdgeRepo(db *sql.DB) *PostgresEdgeRepo {
	return &PostgresEdgeRepo{db: db}
}

// Exists は指定の関係が存在するかどうかを返す。
func (r *PostgresEdgeRepo) Exists(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM edges WHERE subject_id = $1 AND object_id = $2 AND kind = $3
		 )`,
		subjectID, objectID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check edge existence: %w", err)
	}

	return exists, nil
}

// Create は関係を作成する。
// 複合主キーの一意制約違反はDUPLICATE_EDGEエラーとして返す。
// アプリケーション層の事前チェックをすり抜けた並行リクエストもここで確実に弾かれる。
func (r *PostgresEdgeRepo) Create(ctx context.Context, edge *model.Edge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO edges (subject_id, object_id, kind, created_at)
		 VALUES ($1, $2, $3, $4)`,
		edge.SubjectID, edge.ObjectID, edge.Kind, edge.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateEdgeError(edge.Kind)
		}
		return fmt.Errorf("failed to insert edge: %w", err)
	}

	return nil
}

// Delete は関係を削除する。削除された場合はtrueを返す。
func (r *PostgresEdgeRepo) Delete(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM edges WHERE subject_id = $1 AND object_id = $2 AND kind = $3`,
		subjectID, objectID, kind,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ EdgeRepository = (*PostgresEdgeRepo)(nil)
