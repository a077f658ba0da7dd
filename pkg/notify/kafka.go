package notify

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/metrics"
)

// EventProducer is satisfied by kafka.Producer.
type EventProducer interface {
	Publish(ctx context.Context, key, eventType string, value any) error
}

// KafkaPublisher forwards changes to other services, keyed by point id.
type KafkaPublisher struct {
	producer EventProducer
}

// NewKafkaPublisher creates a publisher over a kafka producer
func NewKafkaPublisher(producer EventProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (k *KafkaPublisher) Publish(ctx context.Context, change Change) error {
	eventType := "point_of_interest." + string(change.Action)
	if change.Deleted {
		eventType = "point_of_interest.deleted"
	}

	if err := k.producer.Publish(ctx, change.PointID, eventType, change); err != nil {
		metrics.RecordNotification("kafka", "error")
		return err
	}

	metrics.RecordNotification("kafka", "ok")
	return nil
}
