// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Health はプロセスの生存確認用 /healthz を処理します。依存先には触れません。
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Check は依存先（DB・Redisなど）への疎通確認関数です。
type Check func(ctx context.Context) error

// Readiness は /readyz のハンドラーを返します。
// すべての check が timeout 内に成功すれば200、1つでも失敗すれば503を返します。
// nil の check は「未設定」として報告され、失敗扱いにはなりません。
func Readiness(timeout time.Duration, checks map[string]Check) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(names))
		for _, name := range names {
			check := checks[name]
			if check == nil {
				results[name] = "disabled"
				continue
			}
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
