package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/couchcryptid/taf-data-etl/internal/config"
	"github.com/couchcryptid/taf-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces forecast and failure messages. Forecasts go to the sink
// topic and failures to the failure topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	topics map[domain.OutputKind]string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink and failure
// topics. Messages are hashed by key so a station's forecasts stay ordered
// within one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   maxMessageBytes,
	}
	return &Writer{
		writer: w,
		topics: map[domain.OutputKind]string{
			domain.OutputForecast: cfg.KafkaSinkTopic,
			domain.OutputFailure:  cfg.KafkaFailureTopic,
		},
		logger: logger,
	}
}

// LoadBatch publishes all events in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		topic, ok := w.topics[events[i].Kind]
		if !ok {
			return fmt.Errorf("no topic for %s event", events[i].Kind)
		}
		msgs[i] = serializeToMessage(events[i], topic)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("batch published", "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage converts an output event into a Kafka message for
// topic. Headers are emitted in key order.
func serializeToMessage(event domain.OutputEvent, topic string) kafkago.Message {
	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	return kafkago.Message{
		Topic:   topic,
		Key:     event.Key,
		Value:   event.Value,
		Headers: headers,
	}
}
