package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vsinha/batchplan/pkg/logger"
)

const batchTimeout = 10 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards planning events to a Kafka topic, keyed by run id
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

var _ EventHandler = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{writer: newWriter(brokers, topic), timeout: 5 * time.Second}, nil
}

// newWriter returns an async writer: WriteMessages only enqueues, and delivery
// failures surface through Completion
func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: batchTimeout,
		Async:        true,
		Completion:   logDelivery,
	}
}

func logDelivery(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	logger.Log.Error().
		Err(err).
		Int("messages", len(messages)).
		Msg("kafka delivery failed")
}

func (p *KafkaPublisher) CanHandle(eventType string) bool {
	for _, t := range AllEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (p *KafkaPublisher) Handle(event Event) error {
	msg, err := EncodeMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for run %s: %w", event.Type(), event.StreamID(), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// EncodeMessage builds the Kafka message for event: key is the run id, value the JSON envelope
func EncodeMessage(event Event) (kafka.Message, error) {
	value, err := json.Marshal(ToEnvelope(event))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", event.Type(), err)
	}
	return kafka.Message{
		Key:   []byte(event.StreamID()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type())},
		},
		Time: event.Timestamp(),
	}, nil
}
