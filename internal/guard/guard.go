// Package guard はソーシャルグラフの不変条件を検査する事前判定を提供する。
//
// ここでの判定はすべて書き込み前の助言的なチェックであり、実際の永続化は
// 呼び出し側が行う。重複作成に対する最終的な保証はストレージ層の一意制約が
// 担い、ここでのチェックは一般的なケースの早期打ち切りに使う。
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/saezuri/internal/model"
)

// EdgeFinder は関係の存在確認に必要なインターフェース。
// repository.EdgeRepositoryの部分集合として定義する。
type EdgeFinder interface {
	Exists(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) (bool, error)
}

// GraphGuard はグラフ変更操作の事前条件を検査する。
// アイデンティティとクロックは常に引数で受け取り、暗黙のコンテキストを読まない。
type GraphGuard struct {
	edges      EdgeFinder
	editWindow time.Duration
}

// NewGraphGuard はGraphGuardを生成する。
// editWindowは投稿作成後に本文編集を許可する期間。
func NewGraphGuard(edges EdgeFinder, editWindow time.Duration) *GraphGuard {
	return &GraphGuard{
		edges:      edges,
		editWindow: editWindow,
	}
}

// EditWindow は投稿の編集可能期間を返す。
func (g *GraphGuard) EditWindow() time.Duration {
	return g.editWindow
}

// CanCreateEdge は関係の作成が許されるかどうかを判定する。
// フォローの自己参照は事前状態に関わらずSELF_REFERENCEで拒否する。
// 既に同一の関係が存在する場合はDUPLICATE_EDGEで拒否する。
func (g *GraphGuard) CanCreateEdge(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) error {
	if kind == model.EdgeFollow && subjectID == objectID {
		return model.NewSelfReferenceError()
	}

	exists, err := g.edges.Exists(ctx, kind, subjectID, objectID)
	if err != nil {
		return fmt.Errorf("failed to check edge existence: %w", err)
	}
	if exists {
		return model.NewDuplicateEdgeError(kind)
	}

	return nil
}

// CanDeleteEdge は関係の削除が許されるかどうかを判定する。
// 存在しない関係の削除はEDGE_NOT_FOUNDで拒否する。
func (g *GraphGuard) CanDeleteEdge(ctx context.Context, kind model.EdgeKind, subjectID, objectID string) error {
	exists, err := g.edges.Exists(ctx, kind, subjectID, objectID)
	if err != nil {
		return fmt.Errorf("failed to check edge existence: %w", err)
	}
	if !exists {
		return model.NewEdgeNotFoundError(kind)
	}

	return nil
}

// CanEditPost は投稿本文の編集が許されるかどうかを判定する。
// オーナー以外はNOT_OWNER、作成からeditWindowを過ぎた編集はEDIT_WINDOW_EXPIREDで拒否する。
// 所有の検査は時間の検査より先に行う。
func (g *GraphGuard) CanEditPost(post *model.Post, actorID string, now time.Time) error {
	if post.OwnerID != actorID {
		return model.NewNotOwnerError()
	}
	if !post.Editable(now, g.editWindow) {
		return model.NewEditWindowExpiredError(g.editWindow)
	}

	return nil
}

// CanDeletePost は投稿の削除が許されるかどうかを判定する。
// オーナーであればいつでも削除でき、時間の制約はない。
func (g *GraphGuard) CanDeletePost(post *model.Post, actorID string) error {
	if post.OwnerID != actorID {
		return model.NewNotOwnerError()
	}

	return nil
}
