package di

import (
	"github.com/caarlos0/env/v11"
)

// Universe sources.
const (
	UniverseSourceFile = "file"
	UniverseSourceDB   = "db"
)

// AppConfig はプロセス共通の設定です。
type AppConfig struct {
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`       // cmd/server の公開API
	AdminAddr      string `env:"ADMIN_ADDR" envDefault:":8081"`      // cmd/ingest の管理API
	UniverseSource string `env:"UNIVERSE_SOURCE" envDefault:"file"` // file|db
	UniverseFile   string `env:"UNIVERSE_FILE" envDefault:"config/instruments.json"`
}

// LoadAppConfig は環境変数からAppConfigを読み込みます。
func LoadAppConfig() (AppConfig, error) {
	return env.ParseAs[AppConfig]()
}
