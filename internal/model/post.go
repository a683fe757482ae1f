package model

import "time"

// MaxPostContentLength は投稿本文の最大文字数（ルーン数）。
const MaxPostContentLength = 280

// Post はユーザーの投稿を表す。
// 本文はオーナーのみが編集でき、編集は作成からEditWindow以内に限られる。
// 削除はオーナーであればいつでも可能。
type Post struct {
	ID        string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostWithCounts は投稿にエンゲージメント集計を付加した読み取り専用ビュー。
type PostWithCounts struct {
	Post
	OwnerUsername string
	LikeCount     int
	RetweetCount  int
}

// Editable は指定時刻においてこの投稿の本文が編集可能期間内かどうかを返す。
// 境界値ちょうど（now - CreatedAt == editWindow）は編集可能。
func (p *Post) Editable(now time.Time, editWindow time.Duration) bool {
	return now.Sub(p.CreatedAt) <= editWindow
}
