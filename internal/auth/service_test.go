package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/saezuri/internal/model"
	"github.com/hitoshi/saezuri/internal/token"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockTokenRepo struct {
	revokeFn    func(ctx context.Context, t *model.RevokedToken) error
	isRevokedFn func(ctx context.Context, jti string) (bool, error)
}

func (m *mockTokenRepo) Revoke(ctx context.Context, t *model.RevokedToken) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, t)
	}
	return nil
}

func (m *mockTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.isRevokedFn != nil {
		return m.isRevokedFn(ctx, jti)
	}
	return false, nil
}

func (m *mockTokenRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// --- テストヘルパー ---

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(userRepo *mockUserRepo, tokenRepo *mockTokenRepo) *Service {
	codec := token.NewCodec("test-secret", 30*time.Minute)
	return NewService(codec, userRepo, tokenRepo, NewBcryptVerifier())
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	return apiErr.Code
}

// --- Login ---

// 正しいユーザー名とパスワードでトークンが発行されることを検証
func TestService_Login_Success(t *testing.T) {
	verifier := NewBcryptVerifier()
	hash, err := verifier.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	alice := &model.User{ID: "user-1", Username: "alice", PasswordHash: hash, Role: model.RoleUser}
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			if username != "alice" {
				return nil, nil
			}
			return alice, nil
		},
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				return nil, nil
			}
			return alice, nil
		},
	}
	s := newTestService(userRepo, &mockTokenRepo{})

	raw, err := s.Login(context.Background(), "alice", "password123", testNow)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// 発行されたトークンで認証できること
	user, err := s.Authenticate(context.Background(), "Bearer "+raw, testNow)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
}

// パスワード不一致とユーザー不在がどちらもINVALID_CREDENTIALSになることを検証
func TestService_Login_InvalidCredentials(t *testing.T) {
	verifier := NewBcryptVerifier()
	hash, _ := verifier.Hash("correct-password")

	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			if username == "alice" {
				return &model.User{ID: "user-1", Username: "alice", PasswordHash: hash}, nil
			}
			return nil, nil
		},
	}
	s := newTestService(userRepo, &mockTokenRepo{})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "パスワード不一致", username: "alice", password: "wrong-password"},
		{name: "ユーザー不在", username: "nobody", password: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(context.Background(), tt.username, tt.password, testNow)
			if code := errCode(t, err); code != model.ErrCodeInvalidCredential {
				t.Errorf("code = %q, want %q", code, model.ErrCodeInvalidCredential)
			}
		})
	}
}

// --- Authenticate ---

// 資格情報が欠落・Bearer形式でない場合はNO_CREDENTIALになることを検証
func TestService_Authenticate_NoCredential(t *testing.T) {
	s := newTestService(&mockUserRepo{}, &mockTokenRepo{})

	tests := []struct {
		name       string
		credential string
	}{
		{name: "空", credential: ""},
		{name: "Bearerでない", credential: "Basic dXNlcjpwYXNz"},
		{name: "トークン部分が空", credential: "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(context.Background(), tt.credential, testNow)
			if code := errCode(t, err); code != model.ErrCodeNoCredential {
				t.Errorf("code = %q, want %q", code, model.ErrCodeNoCredential)
			}
		})
	}
}

// 署名不正のトークンはBAD_CREDENTIALになることを検証
func TestService_Authenticate_BadCredential(t *testing.T) {
	s := newTestService(&mockUserRepo{}, &mockTokenRepo{})

	_, err := s.Authenticate(context.Background(), "Bearer not-a-valid-token", testNow)
	if code := errCode(t, err); code != model.ErrCodeBadCredential {
		t.Errorf("code = %q, want %q", code, model.ErrCodeBadCredential)
	}
}

// 期限切れトークンはTOKEN_EXPIREDになり、BAD_CREDENTIALとは区別されることを検証
func TestService_Authenticate_Expired(t *testing.T) {
	codec := token.NewCodec("test-secret", 30*time.Minute)
	s := NewService(codec, &mockUserRepo{}, &mockTokenRepo{}, NewBcryptVerifier())

	raw, err := codec.Encode("user-1", model.RoleUser, testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err = s.Authenticate(context.Background(), "Bearer "+raw, testNow.Add(time.Hour))
	if code := errCode(t, err); code != model.ErrCodeTokenExpired {
		t.Errorf("code = %q, want %q", code, model.ErrCodeTokenExpired)
	}
}

// 署名が正当でもユーザーが削除済みならBAD_CREDENTIALになることを検証
func TestService_Authenticate_DeletedUser(t *testing.T) {
	codec := token.NewCodec("test-secret", 30*time.Minute)
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, nil
		},
	}
	s := NewService(codec, userRepo, &mockTokenRepo{}, NewBcryptVerifier())

	raw, err := codec.Encode("deleted-user", model.RoleUser, testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err = s.Authenticate(context.Background(), "Bearer "+raw, testNow)
	if code := errCode(t, err); code != model.ErrCodeBadCredential {
		t.Errorf("code = %q, want %q", code, model.ErrCodeBadCredential)
	}
}

// 失効済みトークンはBAD_CREDENTIALになることを検証
func TestService_Authenticate_RevokedToken(t *testing.T) {
	codec := token.NewCodec("test-secret", 30*time.Minute)
	tokenRepo := &mockTokenRepo{
		isRevokedFn: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	}
	s := NewService(codec, &mockUserRepo{}, tokenRepo, NewBcryptVerifier())

	raw, err := codec.Encode("user-1", model.RoleUser, testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err = s.Authenticate(context.Background(), "Bearer "+raw, testNow)
	if code := errCode(t, err); code != model.ErrCodeBadCredential {
		t.Errorf("code = %q, want %q", code, model.ErrCodeBadCredential)
	}
}

// ストア障害はAPIErrorに変換せずそのまま伝播することを検証
func TestService_Authenticate_StoreFailurePropagates(t *testing.T) {
	codec := token.NewCodec("test-secret", 30*time.Minute)
	storeErr := errors.New("connection refused")
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, storeErr
		},
	}
	s := NewService(codec, userRepo, &mockTokenRepo{}, NewBcryptVerifier())

	raw, _ := codec.Encode("user-1", model.RoleUser, testNow)

	_, err := s.Authenticate(context.Background(), "Bearer "+raw, testNow)
	if !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Error("infrastructure fault should not be converted to APIError")
	}
}

// --- Logout ---

// ログアウトでトークンのJTIが失効されることを検証
func TestService_Logout_RevokesToken(t *testing.T) {
	codec := token.NewCodec("test-secret", 30*time.Minute)

	var revoked *model.RevokedToken
	tokenRepo := &mockTokenRepo{
		revokeFn: func(_ context.Context, t *model.RevokedToken) error {
			revoked = t
			return nil
		},
	}
	s := NewService(codec, &mockUserRepo{}, tokenRepo, NewBcryptVerifier())

	raw, err := codec.Encode("user-1", model.RoleUser, testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if err := s.Logout(context.Background(), "Bearer "+raw, testNow); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if revoked == nil {
		t.Fatal("expected token to be revoked")
	}
	if revoked.UserID != "user-1" {
		t.Errorf("revoked.UserID = %q, want %q", revoked.UserID, "user-1")
	}
	if revoked.JTI == "" {
		t.Error("revoked.JTI should not be empty")
	}
	if !revoked.ExpiresAt.Equal(testNow.Add(30 * time.Minute)) {
		t.Errorf("revoked.ExpiresAt = %v, want %v", revoked.ExpiresAt, testNow.Add(30*time.Minute))
	}
}

// 期限切れトークンのログアウトは何もせず成功することを検証
func TestService_Logout_ExpiredTokenIsNoop(t *testing.T) {
	codec := token.NewCodec("test-secret", 30*time.Minute)

	revokeCalled := false
	tokenRepo := &mockTokenRepo{
		revokeFn: func(_ context.Context, _ *model.RevokedToken) error {
			revokeCalled = true
			return nil
		},
	}
	s := NewService(codec, &mockUserRepo{}, tokenRepo, NewBcryptVerifier())

	raw, _ := codec.Encode("user-1", model.RoleUser, testNow)

	if err := s.Logout(context.Background(), "Bearer "+raw, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if revokeCalled {
		t.Error("expired token should not be revoked")
	}
}

// --- BcryptVerifier ---

// ハッシュと照合の往復、および不一致の拒否を検証
func TestBcryptVerifier_HashAndVerify(t *testing.T) {
	v := NewBcryptVerifier()

	hash, err := v.Hash("secret-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret-password" {
		t.Error("hash should not equal the plain password")
	}

	if !v.Verify("secret-password", hash) {
		t.Error("Verify() = false for correct password")
	}
	if v.Verify("wrong-password", hash) {
		t.Error("Verify() = true for wrong password")
	}
}
