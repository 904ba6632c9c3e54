// Package usecase implements the instrument universe and catalogue logic.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// KeySource は銘柄キー（instrument key）の読み込み元です。ファイルまたはDBの実装があります。
type KeySource interface {
	Load(ctx context.Context) ([]string, error)
}

// Universe は取り込み対象の銘柄キー一覧を保持します。
// 初回の Symbols 呼び出しで読み込み、以降は Refresh まで同じ一覧を返します。
type Universe struct {
	source KeySource

	mu     sync.RWMutex
	keys   []string
	loaded bool
}

// NewUniverse creates a Universe backed by source.
func NewUniverse(source KeySource) *Universe {
	return &Universe{source: source}
}

// Symbols returns the ordered, de-duplicated instrument keys.
func (u *Universe) Symbols(ctx context.Context) ([]string, error) {
	u.mu.RLock()
	if u.loaded {
		out := append([]string(nil), u.keys...)
		u.mu.RUnlock()
		return out, nil
	}
	u.mu.RUnlock()
	return u.Refresh(ctx)
}

// Refresh は読み込み元から一覧を再取得します。失敗した場合は以前の一覧を保持します。
func (u *Universe) Refresh(ctx context.Context) ([]string, error) {
	raw, err := u.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instrument universe: %w", err)
	}
	keys := Normalize(raw)

	u.mu.Lock()
	u.keys = keys
	u.loaded = true
	u.mu.Unlock()

	slog.Info("instrument universe loaded", "count", len(keys))
	return append([]string(nil), keys...), nil
}

// Normalize trims keys, drops empty ones and removes duplicates keeping the
// first occurrence.
func Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// KeySourceFunc adapts a function to KeySource.
type KeySourceFunc func(ctx context.Context) ([]string, error)

func (f KeySourceFunc) Load(ctx context.Context) ([]string, error) { return f(ctx) }
