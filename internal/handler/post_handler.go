package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/saezuri/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// Create は新規投稿を作成する。
	Create(ctx context.Context, ownerID, content string) (*model.Post, error)
	// GetByID は指定IDの投稿を取得する。
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// Update は投稿本文を更新する。
	Update(ctx context.Context, postID, actorID, content string) (*model.Post, error)
	// Delete は投稿を削除する。
	Delete(ctx context.Context, postID, actorID string) error
	// ListWithCounts は投稿一覧をオーナー名と集計付きで新しい順に返す。
	ListWithCounts(ctx context.Context, offset, limit int) ([]model.PostWithCounts, error)
	// Like / Unlike はいいね関係の作成・削除。
	Like(ctx context.Context, actorID, postID string) error
	Unlike(ctx context.Context, actorID, postID string) error
	// Retweet / Unretweet はリツイート関係の作成・削除。
	Retweet(ctx context.Context, actorID, postID string) error
	Unretweet(ctx context.Context, actorID, postID string) error
}

// PostHandler は投稿管理のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{
		service: service,
	}
}

// postRequest は投稿作成・更新リクエストのボディ。
type postRequest struct {
	Content string `json:"content"`
}

// postResponse は投稿情報のAPIレスポンス。
type postResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// postWithCountsResponse は投稿一覧のAPIレスポンス要素。
type postWithCountsResponse struct {
	postResponse
	OwnerUsername string `json:"owner_username"`
	LikeCount     int    `json:"like_count"`
	RetweetCount  int    `json:"retweet_count"`
}

func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Create は新規投稿を作成する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req postRequest
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := h.service.Create(r.Context(), user.ID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// GetPost は指定IDの投稿を取得する。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// Update は投稿本文を更新する。
// PATCH /api/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req postRequest
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), user.ID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// Delete は投稿を削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List は投稿一覧を集計付きで取得する。匿名でもアクセスできる公開エンドポイント。
// GET /api/posts?offset=0&limit=20
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := h.service.ListWithCounts(r.Context(), offset, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]postWithCountsResponse, 0, len(posts))
	for i := range posts {
		resp = append(resp, postWithCountsResponse{
			postResponse:  toPostResponse(&posts[i].Post),
			OwnerUsername: posts[i].OwnerUsername,
			LikeCount:     posts[i].LikeCount,
			RetweetCount:  posts[i].RetweetCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Like は投稿にいいねを付ける。
// POST /api/posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.engagement(w, r, h.service.Like)
}

// Unlike はいいねを取り消す。
// DELETE /api/posts/{id}/like
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.engagement(w, r, h.service.Unlike)
}

// Retweet は投稿をリツイートする。
// POST /api/posts/{id}/retweet
func (h *PostHandler) Retweet(w http.ResponseWriter, r *http.Request) {
	h.engagement(w, r, h.service.Retweet)
}

// Unretweet はリツイートを取り消す。
// DELETE /api/posts/{id}/retweet
func (h *PostHandler) Unretweet(w http.ResponseWriter, r *http.Request) {
	h.engagement(w, r, h.service.Unretweet)
}

func (h *PostHandler) engagement(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, postID string) error) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := op(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
