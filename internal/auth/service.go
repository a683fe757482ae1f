// Package auth はトークンによるリクエスト認証とログイン・ログアウトを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/saezuri/internal/model"
	"github.com/hitoshi/saezuri/internal/repository"
	"github.com/hitoshi/saezuri/internal/token"
)

// bearerPrefix はAuthorizationヘッダーのBearerスキームのプレフィックス。
const bearerPrefix = "Bearer "

// Service は認証に関するビジネスロジックを提供する。
// トークンの署名検証はCodecに、ユーザーの実在確認と失効確認はリポジトリに委譲する。
type Service struct {
	codec     *token.Codec
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	verifier  PasswordVerifier
}

// NewService はServiceを生成する。
func NewService(
	codec *token.Codec,
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	verifier PasswordVerifier,
) *Service {
	return &Service{
		codec:     codec,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		verifier:  verifier,
	}
}

// Login はユーザー名とパスワードを照合し、署名付きトークンを発行する。
// ユーザーの不存在とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, username, password string, now time.Time) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user for login: %w", err)
	}
	if user == nil {
		return "", model.NewInvalidCredentialsError()
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		slog.Warn("login failed",
			slog.String("username", username),
		)
		return "", model.NewInvalidCredentialsError()
	}

	raw, err := s.codec.Encode(user.ID, user.Role, now)
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return raw, nil
}

// Authenticate は資格情報からリクエストの主体を解決する。
//
// 結果は以下のいずれかに分類される:
//   - 資格情報なし・Bearer形式でない → NO_CREDENTIAL
//   - 署名不正・形式不正・失効済み・ユーザー不在 → BAD_CREDENTIAL
//   - 署名は正当だが期限切れ → TOKEN_EXPIRED
//
// 署名が正当でも、subjectの指すユーザーが削除済みの場合はアクセスを許可しない。
func (s *Service) Authenticate(ctx context.Context, credential string, now time.Time) (*model.User, error) {
	if credential == "" {
		return nil, model.NewNoCredentialError()
	}

	raw, found := strings.CutPrefix(credential, bearerPrefix)
	if !found || raw == "" {
		return nil, model.NewNoCredentialError()
	}

	claims, err := s.codec.Decode(raw, now)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, model.NewTokenExpiredError()
		}
		return nil, model.NewBadCredentialError()
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, model.NewBadCredentialError()
	}

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by subject: %w", err)
	}
	if user == nil {
		return nil, model.NewBadCredentialError()
	}

	return user, nil
}

// Logout は提示されたトークンをその自然な有効期限まで失効させる。
// 期限切れトークンのログアウトは何もせず成功する。
func (s *Service) Logout(ctx context.Context, credential string, now time.Time) error {
	if credential == "" {
		return model.NewNoCredentialError()
	}

	raw, found := strings.CutPrefix(credential, bearerPrefix)
	if !found || raw == "" {
		return model.NewNoCredentialError()
	}

	claims, err := s.codec.Decode(raw, now)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil
		}
		return model.NewBadCredentialError()
	}

	revocation := &model.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: now,
	}
	if err := s.tokenRepo.Revoke(ctx, revocation); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	slog.Info("user logged out", slog.String("user_id", claims.Subject))
	return nil
}
