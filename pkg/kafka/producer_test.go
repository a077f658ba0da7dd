package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestProducer_PublishWritesKeyedJSON(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, "point-of-interest-changes", testLogger())

	err := producer.Publish(context.Background(), "S1", "point_of_interest.approved", map[string]string{"point_id": "S1"})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "point-of-interest-changes", msg.Topic)
	assert.Equal(t, []byte("S1"), msg.Key)

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "S1", body["point_id"])

	require.NotEmpty(t, msg.Headers)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("point_of_interest.approved"), msg.Headers[0].Value)
}

func TestProducer_PublishReturnsWriterError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	producer := NewProducerWithWriter(writer, "changes", testLogger())

	assert.Error(t, producer.Publish(context.Background(), "S1", "point_of_interest.rejected", struct{}{}))
}

func TestProducer_Close(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, "changes", testLogger())

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
	assert.Equal(t, "changes", producer.Topic())
}
