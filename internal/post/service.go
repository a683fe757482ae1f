// Package post は投稿とエンゲージメント（いいね・リツイート）のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/saezuri/internal/guard"
	"github.com/hitoshi/saezuri/internal/model"
	"github.com/hitoshi/saezuri/internal/repository"
	"github.com/hitoshi/saezuri/internal/security"
)

// 一覧取得のページネーション制約。
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service は投稿管理のサービス層。
// 本文のサニタイズと検証、所有・編集期限の判定を経由して永続化する。
type Service struct {
	postRepo  repository.PostRepository
	edgeRepo  repository.EdgeRepository
	guard     *guard.GraphGuard
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	postRepo repository.PostRepository,
	edgeRepo repository.EdgeRepository,
	g *guard.GraphGuard,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		postRepo:  postRepo,
		edgeRepo:  edgeRepo,
		guard:     g,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create は新規投稿を作成する。
// 本文はサニタイズ後に検証され、空または280文字超の場合は
// model.APIError(INVALID_CONTENT)を返す。文字数はルーン数で数える。
func (s *Service) Create(ctx context.Context, ownerID, content string) (*model.Post, error) {
	sanitized := s.sanitizer.Sanitize(content)
	if err := validateContent(sanitized); err != nil {
		return nil, err
	}

	now := s.now()
	post := &model.Post{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Content:   sanitized,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	slog.Info("投稿を作成しました",
		slog.String("post_id", post.ID),
		slog.String("owner_id", ownerID),
	)

	return post, nil
}

// GetByID は指定IDの投稿を取得する。
// 見つからない場合はmodel.APIError(POST_NOT_FOUND)を返す。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	return post, nil
}

// Update は投稿本文を更新する。
// オーナー以外はNOT_OWNER、編集可能期間を過ぎた場合はEDIT_WINDOW_EXPIREDを返す。
// 所有チェックは期限チェックより先に行われる。
func (s *Service) Update(ctx context.Context, postID, actorID, content string) (*model.Post, error) {
	post, err := s.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.guard.CanEditPost(post, actorID, now); err != nil {
		return nil, err
	}

	sanitized := s.sanitizer.Sanitize(content)
	if err := validateContent(sanitized); err != nil {
		return nil, err
	}

	if err := s.postRepo.UpdateContent(ctx, postID, sanitized, now); err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}

	post.Content = sanitized
	post.UpdatedAt = now

	slog.Info("投稿を更新しました",
		slog.String("post_id", postID),
		slog.String("actor_id", actorID),
	)

	return post, nil
}

// Delete は投稿を削除する。オーナー以外はNOT_OWNERを返す。
// 削除に編集可能期間の制約はない。
func (s *Service) Delete(ctx context.Context, postID, actorID string) error {
	post, err := s.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if err := s.guard.CanDeletePost(post, actorID); err != nil {
		return err
	}

	if err := s.postRepo.DeleteByID(ctx, postID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	slog.Info("投稿を削除しました",
		slog.String("post_id", postID),
		slog.String("actor_id", actorID),
	)

	return nil
}

// List は投稿一覧を新しい順に返す。
func (s *Service) List(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	offset, limit = normalizePage(offset, limit)
	posts, err := s.postRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// ListWithCounts は投稿一覧をオーナー名と集計付きで新しい順に返す。
func (s *Service) ListWithCounts(ctx context.Context, offset, limit int) ([]model.PostWithCounts, error) {
	offset, limit = normalizePage(offset, limit)
	posts, err := s.postRepo.ListWithCounts(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// Like は投稿にいいねを付ける。
// 重複はDUPLICATE_EDGE、投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) Like(ctx context.Context, actorID, postID string) error {
	return s.createEngagement(ctx, model.EdgeLike, actorID, postID)
}

// Unlike は投稿のいいねを取り消す。
// いいねしていない場合はmodel.APIError(EDGE_NOT_FOUND)を返す。
func (s *Service) Unlike(ctx context.Context, actorID, postID string) error {
	return s.deleteEngagement(ctx, model.EdgeLike, actorID, postID)
}

// Retweet は投稿をリツイートする。
// 重複はDUPLICATE_EDGE、投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) Retweet(ctx context.Context, actorID, postID string) error {
	return s.createEngagement(ctx, model.EdgeRetweet, actorID, postID)
}

// Unretweet はリツイートを取り消す。
// リツイートしていない場合はmodel.APIError(EDGE_NOT_FOUND)を返す。
func (s *Service) Unretweet(ctx context.Context, actorID, postID string) error {
	return s.deleteEngagement(ctx, model.EdgeRetweet, actorID, postID)
}

func (s *Service) createEngagement(ctx context.Context, kind model.EdgeKind, actorID, postID string) error {
	if err := s.guard.CanCreateEdge(ctx, kind, actorID, postID); err != nil {
		return err
	}

	if _, err := s.GetByID(ctx, postID); err != nil {
		return err
	}

	edge := &model.Edge{
		SubjectID: actorID,
		ObjectID:  postID,
		Kind:      kind,
		CreatedAt: s.now(),
	}
	// 事前チェックと挿入の間の競合はストレージの一意制約が防ぐ。
	if err := s.edgeRepo.Create(ctx, edge); err != nil {
		return err
	}

	slog.Info("エンゲージメントを作成しました",
		slog.String("kind", string(kind)),
		slog.String("actor_id", actorID),
		slog.String("post_id", postID),
	)

	return nil
}

func (s *Service) deleteEngagement(ctx context.Context, kind model.EdgeKind, actorID, postID string) error {
	if err := s.guard.CanDeleteEdge(ctx, kind, actorID, postID); err != nil {
		return err
	}

	deleted, err := s.edgeRepo.Delete(ctx, kind, actorID, postID)
	if err != nil {
		return fmt.Errorf("エンゲージメントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewEdgeNotFoundError(kind)
	}

	slog.Info("エンゲージメントを削除しました",
		slog.String("kind", string(kind)),
		slog.String("actor_id", actorID),
		slog.String("post_id", postID),
	)

	return nil
}

// validateContent はサニタイズ済み本文を検証する。
func validateContent(content string) error {
	if content == "" {
		return model.NewInvalidContentError("本文が空です")
	}
	if utf8.RuneCountInString(content) > model.MaxPostContentLength {
		return model.NewInvalidContentError(
			fmt.Sprintf("本文は%d文字以内で指定してください", model.MaxPostContentLength))
	}
	return nil
}

// normalizePage はページネーションパラメータを正規化する。
func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return offset, limit
}
