package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	key       string
	eventType string
	value     any
}

type fakeProducer struct {
	events []recordedEvent
	err    error
}

func (p *fakeProducer) Publish(_ context.Context, key, eventType string, value any) error {
	p.events = append(p.events, recordedEvent{key: key, eventType: eventType, value: value})
	return p.err
}

func TestKafkaPublisher_EventTypes(t *testing.T) {
	producer := &fakeProducer{}
	publisher := NewKafkaPublisher(producer)
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, Change{PointID: "S1", Action: ActionApproved}))
	require.NoError(t, publisher.Publish(ctx, Change{PointID: "S1", Action: ActionRejected}))
	require.NoError(t, publisher.Publish(ctx, Change{PointID: "S2", Action: ActionApproved, Deleted: true}))

	require.Len(t, producer.events, 3)
	assert.Equal(t, "point_of_interest.approved", producer.events[0].eventType)
	assert.Equal(t, "point_of_interest.rejected", producer.events[1].eventType)
	assert.Equal(t, "point_of_interest.deleted", producer.events[2].eventType)
	assert.Equal(t, "S2", producer.events[2].key)
}

func TestKafkaPublisher_ReturnsProducerError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("leader not available")}

	err := NewKafkaPublisher(producer).Publish(context.Background(), Change{PointID: "S1", Action: ActionApproved})
	assert.Error(t, err)
}
