package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/turntable-server/turntable/internal/config"
)

// ActivityEvent is one latest-activity stamp published to the event stream.
type ActivityEvent struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Producer publishes activity events. It satisfies the handler's activity
// sink so deployments can route latest-activity writes through Kafka instead
// of the in-process batch writer.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducer connects an async producer to the configured brokers.
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Retry.Backoff = cfg.RetryDelay
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	p := &Producer{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
	}

	go func() {
		for err := range producer.Errors() {
			logger.Error("failed to publish activity event", "error", err)
		}
	}()

	return p, nil
}

// Touch publishes an activity event for the user. Never blocks the request
// path; delivery failures are logged by the error loop.
func (p *Producer) Touch(userID int) {
	event := ActivityEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal activity event", "error", err)
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", userID)),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close shuts the producer down, draining in-flight messages.
func (p *Producer) Close() error {
	return p.producer.Close()
}
