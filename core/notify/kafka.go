package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/sqlbase/core"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON events to a kafka topic. Messages are
// keyed by resource, so all events of one resource keep their order.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier returns a notifier writing to topic on brokers
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are missing")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is missing")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w, topic: topic}, nil
}

// Notify implements core.Notifier
func (n *KafkaNotifier) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) error {
	value, err := json.Marshal(NewEvent(ctx, resource, operation, payload))
	if err != nil {
		return fmt.Errorf("cannot marshal event: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(resource),
		Value: value,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(operation)},
		},
	})
	if err != nil {
		return fmt.Errorf("cannot publish to topic %s: %w", n.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
