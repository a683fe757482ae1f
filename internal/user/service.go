// Package user はユーザー管理とフォロー関係のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/saezuri/internal/auth"
	"github.com/hitoshi/saezuri/internal/guard"
	"github.com/hitoshi/saezuri/internal/model"
	"github.com/hitoshi/saezuri/internal/repository"
)

// ユーザー名の制約。英数字とアンダースコアのみ許可する。
const (
	minUsernameLength = 3
	maxUsernameLength = 30
)

// Service はユーザー管理のサービス層。
// 登録・退会とフォロー関係の操作を提供する。
type Service struct {
	userRepo repository.UserRepository
	edgeRepo repository.EdgeRepository
	guard    *guard.GraphGuard
	verifier auth.PasswordVerifier
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	edgeRepo repository.EdgeRepository,
	g *guard.GraphGuard,
	verifier auth.PasswordVerifier,
) *Service {
	return &Service{
		userRepo: userRepo,
		edgeRepo: edgeRepo,
		guard:    g,
		verifier: verifier,
		now:      time.Now,
	}
}

// Register は新規ユーザーを登録する。
// ユーザー名・メールアドレスの重複はmodel.APIError(DUPLICATE_USERNAME)として返る。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, model.NewInvalidRequestError("パスワードは8文字以上で指定してください")
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("ユーザーを登録しました",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// GetByID は指定IDのユーザーを取得する。
// 見つからない場合はmodel.APIError(USER_NOT_FOUND)を返す。
func (s *Service) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// ユーザー本体と、そのユーザーが主体または対象である全ての関係レコード、
// 投稿（CASCADE）が削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// Follow はフォロー関係を作成する。
// 自己フォローはSELF_REFERENCE、重複はDUPLICATE_EDGE、
// 対象ユーザーが存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Follow(ctx context.Context, followerID, targetID string) error {
	if err := s.guard.CanCreateEdge(ctx, model.EdgeFollow, followerID, targetID); err != nil {
		return err
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("フォロー対象の取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError(targetID)
	}

	edge := &model.Edge{
		SubjectID: followerID,
		ObjectID:  targetID,
		Kind:      model.EdgeFollow,
		CreatedAt: s.now(),
	}
	// 事前チェックと挿入の間の競合はストレージの一意制約が防ぐ。
	if err := s.edgeRepo.Create(ctx, edge); err != nil {
		return err
	}

	slog.Info("フォローしました",
		slog.String("follower_id", followerID),
		slog.String("target_id", targetID),
	)

	return nil
}

// Unfollow はフォロー関係を削除する。
// 関係が存在しない場合はmodel.APIError(EDGE_NOT_FOUND)を返す。
func (s *Service) Unfollow(ctx context.Context, followerID, targetID string) error {
	if err := s.guard.CanDeleteEdge(ctx, model.EdgeFollow, followerID, targetID); err != nil {
		return err
	}

	deleted, err := s.edgeRepo.Delete(ctx, model.EdgeFollow, followerID, targetID)
	if err != nil {
		return fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}
	if !deleted {
		// 事前チェック通過後に別リクエストが削除したケース。
		return model.NewEdgeNotFoundError(model.EdgeFollow)
	}

	slog.Info("フォローを解除しました",
		slog.String("follower_id", followerID),
		slog.String("target_id", targetID),
	)

	return nil
}

// validateUsername はユーザー名の形式を検証する。
func validateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return model.NewInvalidRequestError(
			fmt.Sprintf("ユーザー名は%d〜%d文字で指定してください", minUsernameLength, maxUsernameLength))
	}
	for _, r := range username {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '_' {
			return model.NewInvalidRequestError("ユーザー名に使用できるのは英数字とアンダースコアのみです")
		}
	}
	if strings.HasPrefix(username, "_") {
		return model.NewInvalidRequestError("ユーザー名の先頭にアンダースコアは使用できません")
	}
	return nil
}
