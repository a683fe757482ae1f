// Package handler はAPIエンドポイントのHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/saezuri/internal/middleware"
	"github.com/hitoshi/saezuri/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// decodeBody はリクエストボディをJSONとしてデコードする。
// 不正なボディにはINVALID_REQUESTを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの形式が不正です"))
		return false
	}
	return true
}

// requireUser はコンテキストから認証済みユーザーを取得する。
// ゲートミドルウェア配下でのみ呼ばれる前提で、取得できない場合は401を返す。
func requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewNoCredentialError())
		return nil, false
	}
	return user, true
}
