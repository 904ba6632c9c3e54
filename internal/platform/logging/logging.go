// Package logging はslogのデフォルトロガーを設定します。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lmittmann/tint"
)

// Config はログ出力の設定です。
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`  // debug|info|warn|error
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text（tint）|json
}

// LoadConfig は環境変数からログ設定を読み込みます。
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// ParseLevel converts a LOG_LEVEL value into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

// NewHandler は cfg に応じたハンドラーを返します。json 以外はtintのコンソール出力です。
func NewHandler(w io.Writer, cfg Config) (slog.Handler, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "", "text":
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}), nil
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unknown format %q", cfg.Format)
	}
}

// Setup は環境変数から設定を読み込み、標準エラー出力へのデフォルトロガーを設定します。
// 設定が不正な場合もinfoレベルのtintで設定した上でエラーを返します。
func Setup(service string) error {
	cfg, err := LoadConfig()
	var h slog.Handler
	if err == nil {
		h, err = NewHandler(os.Stderr, cfg)
	}
	if err != nil {
		h = tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo, TimeFormat: time.DateTime})
	}
	slog.SetDefault(slog.New(h).With("service", service))
	return err
}
