package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per line per tick to the metrics topic and
// one message per emitted notification to the notifications topic.
// Messages are keyed by line id so each line stays on one partition.
type KafkaPublisher struct {
	writer             messageWriter
	metricsTopic       string
	notificationsTopic string
}

// NewKafka creates a KafkaPublisher for cfg. The writer connects lazily on
// the first publish.
func NewKafka(cfg config.KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg)
}

func newKafkaPublisher(w messageWriter, cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer:             w,
		metricsTopic:       cfg.MetricsTopic,
		notificationsTopic: cfg.NotificationsTopic,
	}
}

// Publish writes the latest reading of every line and, when a notifications
// topic is configured, the notifications raised by this tick.
func (p *KafkaPublisher) Publish(ctx context.Context, lines []types.LineData) error {
	msgs := make([]kafka.Message, 0, len(lines))
	for _, ld := range lines {
		key := []byte(strconv.Itoa(ld.Line.ID))

		if mm, ok := metricMessage(ld); ok {
			b, err := json.Marshal(mm)
			if err != nil {
				return fmt.Errorf("kafka: encode metric for line %d: %w", ld.Line.ID, err)
			}
			msgs = append(msgs, kafka.Message{Topic: p.metricsTopic, Key: key, Value: b, Time: mm.Timestamp})
		}

		if p.notificationsTopic == "" {
			continue
		}
		for _, n := range ld.Emitted() {
			b, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("kafka: encode notification %s: %w", n.ID, err)
			}
			msgs = append(msgs, kafka.Message{Topic: p.notificationsTopic, Key: key, Value: b, Time: n.Timestamp})
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write %d messages: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
