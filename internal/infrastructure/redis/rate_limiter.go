package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult は1回の判定結果
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter は固定ウィンドウ方式のレート制限
// キーごとに INCR し、ウィンドウの最初のリクエストで有効期限を設定する
type RateLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

// NewRateLimiter は window あたり limit 回まで許可する RateLimiter を作成する
func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, prefix: "ratelimit:"}
}

// Allow は key のリクエストを1回数え、許可するかを返す
func (r *RateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	redisKey := r.prefix + key
	result := RateLimitResult{Limit: r.limit}

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return result, fmt.Errorf("レート制限カウンタ更新に失敗: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return result, fmt.Errorf("レート制限の有効期限設定に失敗: %w", err)
		}
	}

	if count <= int64(r.limit) {
		result.Allowed = true
		result.Remaining = r.limit - int(count)
		return result, nil
	}

	ttl, err := r.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		// 有効期限が付いていないとキーが残り続けるので付け直す
		_ = r.client.Expire(ctx, redisKey, r.window).Err()
		ttl = r.window
	}
	result.RetryAfter = ttl
	return result, nil
}
