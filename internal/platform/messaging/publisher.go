// Package messaging は価格更新イベントの配信（Kafka）を提供します。
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	kafkago "github.com/segmentio/kafka-go"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/usecase"
)

// DefaultTopic は価格更新イベントの配信先トピックです。
const DefaultTopic = "market-data-updates"

// Config はKafka配信の設定です。Brokers が空の場合はログ出力のみ行います。
type Config struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_TOPIC" envDefault:"market-data-updates"`
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"100ms"`
}

// LoadConfig は環境変数からKafka設定を読み込みます。
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// Metrics receives publish outcomes ("queued", "delivered", "failed", "dropped").
type Metrics interface {
	PublishResult(result string, n int)
}

// Publisher is an EventPublisher that can be closed on shutdown.
type Publisher interface {
	usecase.EventPublisher
	Close() error
}

// New はcfgに応じてKafkaPublisherかLogPublisherを返します。
func New(cfg Config, m Metrics) Publisher {
	if len(cfg.Brokers) == 0 {
		slog.Info("KAFKA_BROKERS not set, price update events are logged only")
		return NewLogPublisher()
	}
	return NewKafkaPublisher(cfg, m)
}

// messageWriter は kafka-go の Writer のうち使用する部分です。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher はイベントを銘柄をキーとしてKafkaへ非同期に書き込みます。
// 同じ銘柄のイベントは同じパーティションに入るため、銘柄単位の順序が保たれます。
type KafkaPublisher struct {
	w       messageWriter
	topic   string
	metrics Metrics
}

var _ usecase.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a KafkaPublisher backed by an async kafka-go Writer.
func NewKafkaPublisher(cfg Config, m Metrics) *KafkaPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	p := &KafkaPublisher{topic: topic, metrics: m}
	p.w = &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  true,
		Completion:             p.completion,
	}
	slog.Info("Kafka publisher created", "brokers", cfg.Brokers, "topic", topic)
	return p
}

// Publish はイベントを送信キューに積みます。失敗はログとメトリクスに記録するのみです。
func (p *KafkaPublisher) Publish(ctx context.Context, event entity.PriceUpdateEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.WarnContext(ctx, "failed to marshal price update event", "symbol", event.Symbol, "error", err)
		p.record("dropped", 1)
		return
	}

	msg := kafkago.Message{
		Key:   []byte(event.Symbol),
		Value: data,
		Time:  time.UnixMilli(event.Timestamp),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		slog.WarnContext(ctx, "failed to publish price update event",
			"topic", p.topic,
			"symbol", event.Symbol,
			"error", err,
		)
		p.record("dropped", 1)
		return
	}
	p.record("queued", 1)
}

// completion is called by the async writer once a batch is acknowledged or fails.
func (p *KafkaPublisher) completion(msgs []kafkago.Message, err error) {
	if err != nil {
		slog.Warn("Kafka delivery failed", "topic", p.topic, "count", len(msgs), "error", err)
		p.record("failed", len(msgs))
		return
	}
	p.record("delivered", len(msgs))
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func (p *KafkaPublisher) record(result string, n int) {
	if p.metrics != nil {
		p.metrics.PublishResult(result, n)
	}
}

// LogPublisher はブローカー未設定時に使用する、イベントをログに出すだけの実装です。
type LogPublisher struct{}

var _ usecase.EventPublisher = LogPublisher{}

func NewLogPublisher() LogPublisher { return LogPublisher{} }

func (LogPublisher) Publish(ctx context.Context, event entity.PriceUpdateEvent) {
	slog.DebugContext(ctx, "price update",
		"symbol", event.Symbol,
		"interval", event.TimeInterval,
		"timestamp", event.Timestamp,
		"last_price", event.LastPrice.String(),
	)
}

func (LogPublisher) Close() error { return nil }
