// Package ratelimit はキーごとのスライディングウィンドウ方式レートリミッターを提供する。
//
// トークンバケットではなく、直近window内のリクエスト時刻そのものを保持する方式。
// limitはwindowあたりの厳密な上限であり、境界で即座に拒否する。
// 同一キーへの並行呼び出しはキー単位の排他区間で直列化され、
// 1ウィンドウあたりlimit回を超えて許可されることはない。
package ratelimit

import (
	"sync"
	"time"
)

// Quota は1つの操作クラスに対するレート制限値を表す。
type Quota struct {
	// Limit はWindowあたりの最大許可リクエスト数。
	Limit int
	// Window は制限の対象となる直近の時間幅。
	Window time.Duration
}

// Decision はレート制限の判定結果を表す。
type Decision struct {
	// Allowed はリクエストが許可されたかどうか。
	Allowed bool
	// Remaining は今回の判定後にウィンドウ内で許可可能な残り回数。
	Remaining int
	// RetryAfter は拒否された場合に次のリクエストが許可されるまでの推定待ち時間。
	RetryAfter time.Duration
}

// Config はLimiterの設定を保持する。
type Config struct {
	Quota Quota
	// IdleTTL は最終アクセスからこの時間が経過したキーをクリーンアップ対象にする。
	IdleTTL time.Duration
	// CleanupInterval は放置キーのクリーンアップ間隔。
	CleanupInterval time.Duration
}

// DefaultConfig はquotaに対するデフォルト設定を返す。
// IdleTTLはウィンドウより短くならないように補正される。
func DefaultConfig(quota Quota) Config {
	idleTTL := 10 * time.Minute
	if idleTTL < quota.Window {
		idleTTL = quota.Window
	}
	return Config{
		Quota:           quota,
		IdleTTL:         idleTTL,
		CleanupInterval: 5 * time.Minute,
	}
}

// window は1キー分のリクエスト時刻とアクセス時刻を保持する。
// muはtimestampsとlastAccessの両方を保護する。
type window struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastAccess time.Time
}

// Limiter はキーごとのスライディングウィンドウレートリミッターを管理する。
// バックグラウンドで放置キーのクリーンアップを行い、キー空間の無制限な増加を防ぐ。
type Limiter struct {
	config Config

	mu      sync.RWMutex
	windows map[string]*window

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLimiter は新しいLimiterを生成し、クリーンアップのバックグラウンド処理を開始する。
func NewLimiter(config Config) *Limiter {
	l := &Limiter{
		config:  config,
		windows: make(map[string]*window),
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// Quota は設定されたレート制限値を返す。
func (l *Limiter) Quota() Quota {
	return l.config.Quota
}

// Admit はキーに対するリクエストの許可・拒否を判定する。
// 判定手順:
//  1. now - windowより古い時刻を破棄する
//  2. 残り件数がlimit以上なら拒否し、RetryAfterに最古時刻がウィンドウ外になるまでの時間を設定する
//  3. それ以外はnowを記録して許可する
//
// キー単位のロック下で読み取りと書き込みを行うため、同一キーへの並行呼び出しが
// 両方とも上限を超えて許可されることはない。
func (l *Limiter) Admit(key string, now time.Time) Decision {
	// limitが0以下のクラスはすべてのリクエストを拒否する
	if l.config.Quota.Limit <= 0 {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: l.config.Quota.Window,
		}
	}

	w := l.getOrCreateWindow(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastAccess = now

	// 1. ウィンドウ外の時刻を破棄
	cutoff := now.Add(-l.config.Quota.Window)
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept

	// 2. 上限チェック
	if len(w.timestamps) >= l.config.Quota.Limit {
		oldest := w.timestamps[0]
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: l.config.Quota.Window - now.Sub(oldest),
		}
	}

	// 3. 許可して記録
	w.timestamps = append(w.timestamps, now)
	return Decision{
		Allowed:   true,
		Remaining: l.config.Quota.Limit - len(w.timestamps),
	}
}

// KeyCount は現在保持しているキーの数を返す。テストおよびメトリクス用。
func (l *Limiter) KeyCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}

// getOrCreateWindow はキーのウィンドウを取得または作成する。
func (l *Limiter) getOrCreateWindow(key string) *window {
	l.mu.RLock()
	w, exists := l.windows[key]
	l.mu.RUnlock()

	if exists {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// ダブルチェック
	if w, exists := l.windows[key]; exists {
		return w
	}

	w = &window{}
	l.windows[key] = w
	return w
}

// cleanupLoop はバックグラウンドで放置キーを定期的にクリーンアップする。
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからIdleTTLを超えたキーを削除する。
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		w.mu.Lock()
		idle := now.Sub(w.lastAccess) > l.config.IdleTTL
		w.mu.Unlock()
		if idle {
			delete(l.windows, key)
		}
	}
}
