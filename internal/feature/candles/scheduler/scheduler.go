// Package scheduler は時間足ごとの取り込みをcronで起動します。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/usecase"
)

var (
	// ErrRunInProgress は同じ時間足の実行中に起動要求が来た場合に返されます。
	ErrRunInProgress = errors.New("ingest run already in progress")
	// ErrStopped は Stop 後の起動要求に返されます。
	ErrStopped = errors.New("ingest scheduler stopped")
)

// Runner は1回の取り込みを実行します（usecase.IngestUsecase）。
type Runner interface {
	Run(ctx context.Context, interval entity.Interval) (usecase.RunReport, error)
}

// Metrics receives skipped-run notifications.
type Metrics interface {
	RunSkipped(interval string)
}

// Entry は登録済みのスケジュールです。
type Entry struct {
	Interval entity.Interval `json:"interval"`
	Spec     string          `json:"spec"`
	Next     time.Time       `json:"next"`
	Running  bool            `json:"running"`
}

// Scheduler は時間足ごとにcron式で Runner を起動します。
// 同じ時間足の実行は同時に1つまでで、重なった起動はスキップされます。
type Scheduler struct {
	runner  Runner
	cron    *cron.Cron
	metrics Metrics

	running map[entity.Interval]*atomic.Bool

	mu      sync.Mutex
	entries map[entity.Interval]cronEntry
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type cronEntry struct {
	id   cron.EntryID
	spec string
}

// Option は Scheduler の任意設定です。
type Option func(*Scheduler)

// WithMetrics は計測先を設定します。
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a Scheduler whose cron expressions are evaluated in loc.
func New(runner Runner, loc *time.Location, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:  runner,
		running: make(map[entity.Interval]*atomic.Bool),
		entries: make(map[entity.Interval]cronEntry),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, iv := range entity.Intervals() {
		s.running[iv] = &atomic.Bool{}
	}
	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule registers interval with a 5-field cron spec; an empty spec uses
// the interval's default cadence. Re-scheduling replaces the previous entry.
func (s *Scheduler) Schedule(interval entity.Interval, spec string) error {
	if !interval.Valid() {
		return fmt.Errorf("%w: %q", entity.ErrInvalidInterval, interval)
	}
	if spec == "" {
		spec = interval.Cadence()
	}

	id, err := s.cron.AddFunc(spec, func() {
		// 結果とエラーは Runner 側でログ・計測済み
		_, _ = s.runGuarded(s.ctx, interval, "cron")
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", interval, spec, err)
	}

	s.mu.Lock()
	if prev, ok := s.entries[interval]; ok {
		s.cron.Remove(prev.id)
	}
	s.entries[interval] = cronEntry{id: id, spec: spec}
	s.mu.Unlock()

	slog.Info("ingest scheduled", "interval", interval, "spec", spec)
	return nil
}

// Trigger は時間足の取り込みを同期的に1回実行します。
// 同じ時間足が実行中なら ErrRunInProgress を返します。
func (s *Scheduler) Trigger(ctx context.Context, interval entity.Interval) (usecase.RunReport, error) {
	if !interval.Valid() {
		return usecase.RunReport{Interval: interval, State: usecase.RunIdle},
			fmt.Errorf("%w: %q", entity.ErrInvalidInterval, interval)
	}
	return s.runGuarded(ctx, interval, "manual")
}

// TriggerAsync はスケジューラのコンテキストでバックグラウンド実行を開始します。
func (s *Scheduler) TriggerAsync(interval entity.Interval) error {
	if !interval.Valid() {
		return fmt.Errorf("%w: %q", entity.ErrInvalidInterval, interval)
	}
	release, err := s.acquire(interval, "manual")
	if err != nil {
		return err
	}
	go func() {
		defer release()
		_, _ = s.runner.Run(s.ctx, interval)
	}()
	return nil
}

// Running reports whether interval currently has a run in flight.
func (s *Scheduler) Running(interval entity.Interval) bool {
	flag, ok := s.running[interval]
	return ok && flag.Load()
}

// Entries returns the registered schedules ordered by interval.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for iv, e := range s.entries {
		out = append(out, Entry{
			Interval: iv,
			Spec:     e.spec,
			Next:     s.cron.Entry(e.id).Next,
			Running:  s.Running(iv),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval < out[j].Interval })
	return out
}

// Start begins firing scheduled runs. It does not block.
func (s *Scheduler) Start() {
	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()
	s.cron.Start()
	slog.Info("ingest scheduler started", "schedules", n)
}

// Stop は新しい起動を止め、実行中の取り込みの完了を待ちます。
// ctx が先に終了した場合は実行中の取り込みをキャンセルし ctx.Err() を返します。
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		slog.Info("ingest scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) runGuarded(ctx context.Context, interval entity.Interval, trigger string) (usecase.RunReport, error) {
	release, err := s.acquire(interval, trigger)
	if err != nil {
		return usecase.RunReport{Interval: interval, State: usecase.RunIdle}, err
	}
	defer release()

	// 呼び出し元のctxに加えて Stop によるキャンセルも受け取る
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	return s.runner.Run(ctx, interval)
}

// acquire sets the per-interval running flag and registers the run with the
// WaitGroup that Stop waits on.
func (s *Scheduler) acquire(interval entity.Interval, trigger string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	flag := s.running[interval]
	if !flag.CompareAndSwap(false, true) {
		s.skipped(interval, trigger)
		return nil, ErrRunInProgress
	}
	s.wg.Add(1)
	return func() {
		flag.Store(false)
		s.wg.Done()
	}, nil
}

func (s *Scheduler) skipped(interval entity.Interval, trigger string) {
	slog.Warn("ingest run skipped, previous run still active", "interval", interval, "trigger", trigger)
	if s.metrics != nil {
		s.metrics.RunSkipped(interval.String())
	}
}

// cronLogger routes robfig/cron logs to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
