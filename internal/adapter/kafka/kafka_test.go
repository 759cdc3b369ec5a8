package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/taf-data-etl/internal/config"
	"github.com/couchcryptid/taf-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("00Z.txt"),
		Value:     []byte("2023/04/24 00:00\nTAF KXYZ 240000Z 2400/2500 09010KT="),
		Topic:     "raw-taf-cycles",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.HeaderContent, Value: []byte(domain.ContentCycle)},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("00Z.txt"), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, "raw-taf-cycles", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, domain.ContentCycle, raw.Headers[domain.HeaderContent])
	assert.False(t, raw.IsBulletin())
	assert.Nil(t, raw.Commit)
}

func TestMapMessageToRawEvent_Bulletin(t *testing.T) {
	raw := mapMessageToRawEvent(kafkago.Message{
		Headers: []kafkago.Header{{Key: domain.HeaderContent, Value: []byte(domain.ContentBulletin)}},
	})
	assert.True(t, raw.IsBulletin())
}

func TestSerializeToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Kind:  domain.OutputForecast,
		Key:   []byte("KXYZ"),
		Value: []byte(`{"station":"KXYZ"}`),
		Headers: map[string]string{
			"type":         "forecast",
			"forecast_id":  "KXYZ-0011223344556677",
			"processed_at": "2023-04-24T00:05:00Z",
		},
	}

	msg := serializeToMessage(event, "parsed-taf-forecasts")

	assert.Equal(t, "parsed-taf-forecasts", msg.Topic)
	assert.Equal(t, []byte("KXYZ"), msg.Key)
	assert.JSONEq(t, `{"station":"KXYZ"}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "forecast_id", msg.Headers[0].Key)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, "type", msg.Headers[2].Key)
	assert.Equal(t, []byte("forecast"), msg.Headers[2].Value)
}

func TestWriter_RoutesByKind(t *testing.T) {
	w := NewWriter(&config.Config{
		KafkaBrokers:      []string{"localhost:9092"},
		KafkaSinkTopic:    "sink",
		KafkaFailureTopic: "failures",
	}, slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "sink", w.topics[domain.OutputForecast])
	assert.Equal(t, "failures", w.topics[domain.OutputFailure])
	assert.Empty(t, w.writer.Topic)
	assert.NoError(t, w.LoadBatch(context.Background(), nil))

	err := w.LoadBatch(context.Background(), []domain.OutputEvent{{Kind: domain.OutputKind(9)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no topic")
}
