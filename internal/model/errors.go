package model

import (
	"fmt"
	"time"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 呼び出し側が再判定せずにレスポンスを構築できるだけの情報を持つ。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, graph, rate, system
	Action   string // ユーザー向け対処方法

	// RetryAfter はレート制限エラーの場合のみ設定される再試行までの待ち時間。
	RetryAfter time.Duration
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNoCredential      = "NO_CREDENTIAL"
	ErrCodeBadCredential     = "BAD_CREDENTIAL"
	ErrCodeTokenExpired      = "TOKEN_EXPIRED"
	ErrCodeRateExceeded      = "RATE_EXCEEDED"
	ErrCodeDuplicateEdge     = "DUPLICATE_EDGE"
	ErrCodeSelfReference     = "SELF_REFERENCE"
	ErrCodeNotOwner          = "NOT_OWNER"
	ErrCodeEditWindowExpired = "EDIT_WINDOW_EXPIRED"
	ErrCodeEdgeNotFound      = "EDGE_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodePostNotFound      = "POST_NOT_FOUND"
	ErrCodeDuplicateUsername = "DUPLICATE_USERNAME"
	ErrCodeInvalidContent    = "INVALID_CONTENT"
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
)

// NewNoCredentialError は資格情報が提示されなかった場合のエラーを生成する。
// 資格情報が不正な場合（BadCredential）とは区別される。
func NewNoCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeNoCredential,
		Message:  "認証情報が指定されていません。",
		Category: "auth",
		Action:   "AuthorizationヘッダーにBearerトークンを指定してください。",
	}
}

// NewBadCredentialError は資格情報が不正な場合のエラーを生成する。
// 署名不正・形式不正・未知のユーザーを指すトークンはすべてこのエラーになる。
func NewBadCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeBadCredential,
		Message:  "認証情報が無効です。",
		Category: "auth",
		Action:   "再度ログインしてトークンを取得し直してください。",
	}
}

// NewTokenExpiredError はトークンの有効期限切れエラーを生成する。
// 署名は正当だが期限が経過している場合のみ使い、BadCredentialとは区別する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてトークンを取得し直してください。",
	}
}

// NewRateExceededError はレート制限超過エラーを生成する。
// retryAfterは次のリクエストが許可されるまでの推定待ち時間。
func NewRateExceededError(retryAfter time.Duration) *APIError {
	return &APIError{
		Code:       ErrCodeRateExceeded,
		Message:    "リクエスト数が制限を超えました。",
		Category:   "rate",
		Action:     "しばらく待ってから再度お試しください。",
		RetryAfter: retryAfter,
	}
}

// NewDuplicateEdgeError は既に存在する関係を重複作成しようとした場合のエラーを生成する。
func NewDuplicateEdgeError(kind EdgeKind) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEdge,
		Message:  fmt.Sprintf("この%sは既に存在します。", edgeKindLabel(kind)),
		Category: "graph",
		Action:   "現在の状態を確認してください。",
	}
}

// NewSelfReferenceError は自分自身へのフォローを試みた場合のエラーを生成する。
func NewSelfReferenceError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfReference,
		Message:  "自分自身をフォローすることはできません。",
		Category: "graph",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewNotOwnerError は所有者以外による操作を拒否するエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "この投稿を操作する権限がありません。",
		Category: "graph",
		Action:   "自分の投稿に対してのみ実行できます。",
	}
}

// NewEditWindowExpiredError は編集可能期間を過ぎた投稿の編集エラーを生成する。
func NewEditWindowExpiredError(window time.Duration) *APIError {
	return &APIError{
		Code:     ErrCodeEditWindowExpired,
		Message:  fmt.Sprintf("投稿は作成から%s以内のみ編集できます。", window),
		Category: "graph",
		Action:   "編集可能期間を過ぎた投稿は削除して投稿し直してください。",
	}
}

// NewEdgeNotFoundError は存在しない関係の削除を試みた場合のエラーを生成する。
func NewEdgeNotFoundError(kind EdgeKind) *APIError {
	return &APIError{
		Code:     ErrCodeEdgeNotFound,
		Message:  fmt.Sprintf("この%sは存在しません。", edgeKindLabel(kind)),
		Category: "graph",
		Action:   "現在の状態を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "validation",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewPostNotFoundError は投稿が見つからない場合のエラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "validation",
		Action:   "投稿IDを確認してください。",
	}
}

// NewDuplicateUsernameError はユーザー名またはメールアドレスの重複エラーを生成する。
func NewDuplicateUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  "このユーザー名またはメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のユーザー名・メールアドレスを指定してください。",
	}
}

// NewInvalidContentError は投稿本文が不正な場合のエラーを生成する。
func NewInvalidContentError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidContent,
		Message:  fmt.Sprintf("投稿本文が不正です: %s", reason),
		Category: "validation",
		Action:   fmt.Sprintf("本文は1〜%d文字で指定してください。", MaxPostContentLength),
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザーの存在有無を漏らさないため、原因は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しい形式でリクエストしてください。",
	}
}

// edgeKindLabel は関係種別の日本語表記を返す。
func edgeKindLabel(kind EdgeKind) string {
	switch kind {
	case EdgeFollow:
		return "フォロー"
	case EdgeLike:
		return "いいね"
	case EdgeRetweet:
		return "リツイート"
	}
	return "関係"
}
