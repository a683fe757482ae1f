package model

import "time"

// EdgeKind はソーシャルグラフの関係種別を表す。
type EdgeKind string

const (
	// EdgeFollow はユーザー間のフォロー関係。objectはユーザーID。
	EdgeFollow EdgeKind = "follow"
	// EdgeLike は投稿へのいいね。objectは投稿ID。
	EdgeLike EdgeKind = "like"
	// EdgeRetweet は投稿のリツイート。objectは投稿ID。
	EdgeRetweet EdgeKind = "retweet"
)

// Valid は既知の関係種別かどうかを返す。
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeFollow, EdgeLike, EdgeRetweet:
		return true
	}
	return false
}

// Edge はソーシャルグラフの有向関係レコードを表す。
// (SubjectID, ObjectID, Kind) の組につき高々1件という一意性を持つ。
// 作成と削除のみで、更新されることはない。
type Edge struct {
	SubjectID string
	ObjectID  string
	Kind      EdgeKind
	CreatedAt time.Time
}
