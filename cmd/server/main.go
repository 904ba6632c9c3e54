// Command server は保存済みのローソク足を返す参照APIを起動します。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"market_data/internal/app/di"
	"market_data/internal/app/router"
	candlesadapters "market_data/internal/feature/candles/adapters"
	"market_data/internal/feature/candles/scheduler"
	candleshandler "market_data/internal/feature/candles/transport/handler"
	candlesusecase "market_data/internal/feature/candles/usecase"
	instrumentsadapters "market_data/internal/feature/instruments/adapters"
	instrumentshandler "market_data/internal/feature/instruments/transport/handler"
	instrumentsusecase "market_data/internal/feature/instruments/usecase"
	"market_data/internal/platform/db"
	"market_data/internal/platform/http/handler"
	"market_data/internal/platform/logging"
	"market_data/internal/platform/metrics"
	infraredis "market_data/internal/platform/redis"
)

const (
	shutdownTimeout = 15 * time.Second
	readyTimeout    = 2 * time.Second
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
	if err := logging.Setup("server"); err != nil {
		slog.Warn("invalid logging config, using defaults", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	appCfg, err := di.LoadAppConfig()
	if err != nil {
		return err
	}
	dbCfg, err := db.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	redisCfg, err := infraredis.LoadConfig()
	if err != nil {
		return err
	}
	// 取り込み側と同じタイムゾーンで日足・週足の境界を揃える
	schedCfg, err := scheduler.LoadConfig()
	if err != nil {
		return err
	}
	loc, err := schedCfg.Location()
	if err != nil {
		return err
	}

	// db
	gdb, err := db.Open(dbCfg, di.Models()...)
	if err != nil {
		return err
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, redisCfg); err != nil {
		slog.Warn("Redis unavailable. Running without cache.")
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	m := metrics.New()

	// Repository
	candleRepo := candlesadapters.NewCandleRepository(gdb)
	instrumentRepo := instrumentsadapters.NewInstrumentRepository(gdb)
	candleCache := di.NewCandleCache(rdb, redisCfg, m)

	// Usecase
	candlesUC := candlesusecase.NewCandlesUsecase(candleRepo, candleCache, candlesusecase.WithLocation(loc))
	catalogUC := instrumentsusecase.NewCatalogUsecase(instrumentRepo)

	// Handler
	candlesH := candleshandler.NewCandlesHandler(candlesUC)
	instrumentsH := instrumentshandler.NewInstrumentHandler(nil, catalogUC)
	ready := handler.Readiness(readyTimeout, di.ReadinessChecks(gdb, rdb))

	srv := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           router.NewServerRouter(candlesH, instrumentsH, ready, m.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
