package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/turntable-server/turntable/internal/config"
	"github.com/turntable-server/turntable/internal/worker"
)

// Consumer consumes activity events and feeds them into the batching
// activity store. It runs as its own binary so the web tier never blocks on
// the database for activity stamps.
type Consumer struct {
	config        *config.KafkaConfig
	store         worker.ActivityStore
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumer creates a new activity event consumer
func NewConsumer(cfg *config.KafkaConfig, store worker.ActivityStore, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		store:         store,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start begins consuming activity events
func (c *Consumer) Start() error {
	c.logger.Info("starting activity consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &groupHandler{consumer: c}
			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if err == sarama.ErrClosedConsumerGroup {
					return
				}
				c.logger.Error("error from consumer group", "error", err)
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("consumer group error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the consumer down
func (c *Consumer) Stop() error {
	c.cancel()
	err := c.consumerGroup.Close()
	c.wg.Wait()
	return err
}

// maxPendingTouches bounds the per-claim batch between flushes.
const maxPendingTouches = 500

type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim batches activity stamps per claim and flushes them when the
// claim drains. Duplicate stamps within a batch collapse to one write.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	pending := make(map[int]struct{})

	flush := func() {
		if len(pending) == 0 {
			return
		}
		ids := make([]int, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		if err := h.consumer.store.TouchActivity(session.Context(), ids); err != nil {
			h.consumer.logger.Error("failed to write activity batch", "count", len(ids), "error", err)
			return
		}
		pending = make(map[int]struct{})
	}

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}

			var event ActivityEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.consumer.logger.Warn("skipping malformed activity event",
					"offset", message.Offset,
					"error", err,
				)
				session.MarkMessage(message, "")
				continue
			}

			pending[event.UserID] = struct{}{}
			session.MarkMessage(message, "")

			if len(pending) >= maxPendingTouches || len(claim.Messages()) == 0 {
				flush()
			}
		case <-session.Context().Done():
			flush()
			return nil
		}
	}
}
