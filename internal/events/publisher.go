package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/sentilens/internal/models"
)

const FLUSH_TIMEOUT_MS = 5000

type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// Publisher sends every resolved analysis outcome to a Kafka topic, keyed by
// request ID. It satisfies controller.Observer.
type Publisher struct {
	producer producer
	topic    string
	wg       sync.WaitGroup
}

func NewPublisher(broker, topic string) (*Publisher, error) {
	slog.Info("[KafkaPublisher] Initializing Kafka Producer...",
		slog.String("broker", broker),
		slog.String("topic", topic))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaPublisher] Failed to create producer: %w", err)
	}

	return newPublisher(p, topic), nil
}

func newPublisher(p producer, topic string) *Publisher {
	pub := &Publisher{producer: p, topic: topic}
	pub.wg.Add(1)
	go pub.watchDeliveries()
	return pub
}

func (p *Publisher) watchDeliveries() {
	defer p.wg.Done()
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				slog.Warn("[KafkaPublisher] Delivery failed",
					slog.String("key", string(ev.Key)),
					slog.String("error", ev.TopicPartition.Error.Error()))
			}
		case kafka.Error:
			slog.Error("[KafkaPublisher] Producer error",
				slog.String("error", ev.Error()))
		}
	}
}

func (p *Publisher) OnOutcome(outcome models.AnalysisOutcome) {
	msg, err := BuildMessage(p.topic, outcome)
	if err != nil {
		slog.Error("[KafkaPublisher] Failed to build message",
			slog.String("request_id", outcome.RequestID),
			slog.String("error", err.Error()))
		return
	}

	for i := 0; i < 3; i++ {
		err = p.producer.Produce(msg, nil)
		if err == nil {
			return
		}
		slog.Warn("[KafkaPublisher] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
	}
	slog.Error("[KafkaPublisher] Dropping outcome after retries",
		slog.String("request_id", outcome.RequestID))
}

// Close flushes pending messages and shuts the producer down.
func (p *Publisher) Close() {
	slog.Info("[KafkaPublisher] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(FLUSH_TIMEOUT_MS); remaining > 0 {
		slog.Warn("[KafkaPublisher] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	p.wg.Wait()
	slog.Info("[KafkaPublisher] Kafka producer shut down")
}

func BuildMessage(topic string, outcome models.AnalysisOutcome) (*kafka.Message, error) {
	value, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}

	status := "success"
	if outcome.Error != "" {
		status = "failure"
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(outcome.RequestID),
		Value:          value,
		Headers: []kafka.Header{
			{Key: "model", Value: []byte(outcome.Model)},
			{Key: "status", Value: []byte(status)},
		},
	}, nil
}
