package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/hitoshi/saezuri/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// StatusForAPIError はAPIエラーコードをHTTPステータスコードに写像する。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case "NO_CREDENTIAL", "BAD_CREDENTIAL", "TOKEN_EXPIRED", "INVALID_CREDENTIALS":
		return http.StatusUnauthorized
	case "NOT_OWNER", "SELF_REFERENCE":
		return http.StatusForbidden
	case "USER_NOT_FOUND", "POST_NOT_FOUND":
		return http.StatusNotFound
	case "DUPLICATE_EDGE", "EDGE_NOT_FOUND", "EDIT_WINDOW_EXPIRED", "DUPLICATE_USERNAME":
		return http.StatusConflict
	case "RATE_EXCEEDED":
		return http.StatusTooManyRequests
	case "INVALID_CONTENT", "INVALID_REQUEST":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteAPIError はAPIエラーを適切なステータスコードと統一フォーマットで書き込む。
// レート超過の場合はRetry-Afterヘッダーを付与する。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	// メトリクスミドルウェア配下ではエラーコードをコレクターに通知する
	if rec, ok := w.(apiErrorRecorder); ok {
		rec.recordAPIErrorCode(apiErr.Code)
	}

	if apiErr.RetryAfter > 0 {
		retryAfterSec := int(math.Ceil(apiErr.RetryAfter.Seconds()))
		if retryAfterSec < 1 {
			retryAfterSec = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	}

	status := StatusForAPIError(apiErr)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	WriteErrorResponse(w, status, apiErr)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
