package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	WaitIfNeeded(ctx context.Context) error
}

// RateLimiterは、固定ウィンドウ方式でAPI呼び出しの頻度を制限します。
// 複数の時間足の取り込みが同じ上流APIを共有するため、並行呼び出しに対して安全です。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // ウィンドウあたりの上限
	interval  time.Duration // どの単位でリセットするか
	count     int
	lastReset time.Time
	now       func() time.Time
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
// limit が0以下の場合は制限しません。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// WaitIfNeededはレートリミットの上限に達しているかを確認し、必要であれば
// 次のウィンドウまで待機します。待機中にctxがキャンセルされた場合はctx.Err()を返します。
// 待機はロックを解放して行うため、他の呼び出し元も自分のctxで中断できます。
func (rl *RateLimiter) WaitIfNeeded(ctx context.Context) error {
	if rl.limit <= 0 || rl.interval <= 0 {
		return ctx.Err()
	}

	for {
		sleep, ok := rl.reserve()
		if ok {
			return nil
		}

		slog.Warn("rate limit reached, waiting", "limit", rl.limit, "sleep", sleep)
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve は現在のウィンドウに空きがあれば1枠確保します。
// 空きがなければウィンドウが切り替わるまでの時間を返します。
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}
	if rl.count < rl.limit {
		rl.count++
		return 0, true
	}
	return max(rl.interval-now.Sub(rl.lastReset), time.Millisecond), false
}
