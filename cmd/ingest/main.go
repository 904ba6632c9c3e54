// Command ingest は時間足ごとのスケジュールで相場を取り込み、管理APIを公開します。
//
// INGEST_ONCE に時間足を指定した場合は1回だけ実行して終了します（cronジョブ向け）。
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
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"market_data/internal/app/di"
	"market_data/internal/app/router"
	candlesadapters "market_data/internal/feature/candles/adapters"
	"market_data/internal/feature/candles/assembler"
	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/scheduler"
	candleshandler "market_data/internal/feature/candles/transport/handler"
	candlesusecase "market_data/internal/feature/candles/usecase"
	instrumentsadapters "market_data/internal/feature/instruments/adapters"
	instrumentshandler "market_data/internal/feature/instruments/transport/handler"
	instrumentsusecase "market_data/internal/feature/instruments/usecase"
	"market_data/internal/platform/db"
	"market_data/internal/platform/externalapi/upstox"
	"market_data/internal/platform/http/handler"
	"market_data/internal/platform/logging"
	"market_data/internal/platform/messaging"
	"market_data/internal/platform/metrics"
	infraredis "market_data/internal/platform/redis"
)

const (
	shutdownTimeout = 30 * time.Second
	readyTimeout    = 2 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
	if err := logging.Setup("ingest"); err != nil {
		slog.Warn("invalid logging config, using defaults", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("ingest stopped", "error", err)
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
	marketCfg, err := upstox.LoadConfig()
	if err != nil {
		return err
	}
	kafkaCfg, err := messaging.LoadConfig()
	if err != nil {
		return err
	}
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
		slog.Warn("Redis unavailable. Ingesting without cache.")
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	m := metrics.New()

	// 銘柄
	source, err := di.NewUniverseSource(appCfg, afero.NewOsFs(), gdb)
	if err != nil {
		return err
	}
	universe := instrumentsusecase.NewUniverse(source)
	catalogUC := instrumentsusecase.NewCatalogUsecase(instrumentsadapters.NewInstrumentRepository(gdb))

	// 取り込み
	publisher := messaging.New(kafkaCfg, m)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close publisher", "error", err)
		}
	}()
	ingestUC := candlesusecase.NewIngestUsecase(
		universe,
		di.NewMarket(marketCfg),
		assembler.New(loc),
		candlesadapters.NewCandleRepository(gdb),
		di.NewCandleCache(rdb, redisCfg, m),
		publisher,
		di.NewUpstreamLimiter(marketCfg),
		candlesusecase.WithBatchSize(schedCfg.BatchSize),
		candlesusecase.WithRunTimeout(schedCfg.RunTimeout),
		candlesusecase.WithInstrumentRecorder(di.NewQuoteRecorder(catalogUC)),
		candlesusecase.WithMetrics(m),
	)

	if schedCfg.Once != "" {
		return runOnce(ctx, ingestUC, schedCfg.Once)
	}

	intervals, err := schedCfg.ParsedIntervals()
	if err != nil {
		return err
	}
	sched := scheduler.New(ingestUC, loc, scheduler.WithMetrics(m))
	for _, iv := range intervals {
		if err := sched.Schedule(iv, schedCfg.CronFor(iv)); err != nil {
			return err
		}
	}
	sched.Start()

	ingestH := candleshandler.NewIngestHandler(sched)
	instrumentsH := instrumentshandler.NewInstrumentHandler(universe, catalogUC)
	ready := handler.Readiness(readyTimeout, di.ReadinessChecks(gdb, rdb))

	srv := &http.Server{
		Addr:              appCfg.AdminAddr,
		Handler:           router.NewIngestRouter(ingestH, instrumentsH, ready, m.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("admin server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// 実行中の取り込みはチャンクの途中で打ち切らずに待つ
		return errors.Join(srv.Shutdown(shutdownCtx), sched.Stop(shutdownCtx))
	})
	return g.Wait()
}

// runOnce は指定された時間足を1回だけ取り込みます。
func runOnce(ctx context.Context, uc *candlesusecase.IngestUsecase, code string) error {
	interval, err := entity.ParseInterval(code)
	if err != nil {
		return err
	}
	report, err := uc.Run(ctx, interval)
	slog.Info("ingest finished",
		"interval", report.Interval,
		"state", report.State,
		"symbols", report.Symbols,
		"batches", report.BatchesDone,
		"candles", report.CandlesStored,
		"events", report.EventsPublished,
		"elapsed", report.Duration,
	)
	return err
}
