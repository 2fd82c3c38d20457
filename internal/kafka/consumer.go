// Package kafka consumes platform activity events and turns them into
// targeted leaderboard refresh requests. The leaderboard never writes to the
// activity topic; it only reacts to what the rest of the platform publishes.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/logistics-leaderboard/internal/config"
	"github.com/logistics-leaderboard/internal/domain"
)

// Activity event types published by the platform
const (
	EventOrderStatusChanged = "order_status_changed"
	EventCallAttemptLogged  = "call_attempt_logged"
	EventProviderRated      = "provider_rated"
	EventAgentRatingChanged = "agent_rating_changed"
)

// ActivityEvent is one platform activity record. An order event names the
// participants it touched; rating events name a single participant.
type ActivityEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id,omitempty"`
	ProviderID    string    `json:"provider_id,omitempty"`
	SellerID      string    `json:"seller_id,omitempty"`
	AgentID       string    `json:"agent_id,omitempty"`
	ParticipantID string    `json:"participant_id,omitempty"`
	Role          string    `json:"role,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// roles returns the leaderboard roles whose boards the event can move
func (e *ActivityEvent) roles() []domain.Role {
	switch e.EventType {
	case EventOrderStatusChanged:
		var roles []domain.Role
		if e.ProviderID != "" {
			roles = append(roles, domain.RoleProvider)
		}
		if e.SellerID != "" {
			roles = append(roles, domain.RoleSeller)
		}
		if e.AgentID != "" {
			roles = append(roles, domain.RoleAgent)
		}
		return roles
	case EventCallAttemptLogged:
		return []domain.Role{domain.RoleAgent}
	case EventProviderRated:
		return []domain.Role{domain.RoleProvider}
	case EventAgentRatingChanged:
		return []domain.Role{domain.RoleAgent}
	default:
		if role := domain.Role(e.Role); role.IsValid() {
			return []domain.Role{role}
		}
		return nil
	}
}

// RefreshRequester queues a leaderboard refresh for one role
type RefreshRequester interface {
	RequestRefresh(role domain.Role)
}

// Consumer consumes activity events from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	refresher     RefreshRequester
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, refresher RefreshRequester, logger *slog.Logger) (*Consumer, error) {
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
		refresher:     refresher,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if err == sarama.ErrClosedConsumerGroup {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition. Events are
// coalesced per role over the debounce window so a burst of order updates
// triggers a single refresh per affected board set.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	pending := make(map[domain.Role]bool)
	debounce := time.NewTimer(cfg.DebounceWindow)
	defer debounce.Stop()

	flush := func() {
		for role := range pending {
			h.consumer.refresher.RequestRefresh(role)
			delete(pending, role)
		}
	}

	for {
		select {
		case <-session.Context().Done():
			flush()
			return nil

		case <-debounce.C:
			flush()
			debounce.Reset(cfg.DebounceWindow)

		case message, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}

			var event ActivityEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.consumer.logger.Warn("failed to unmarshal message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				session.MarkMessage(message, "")
				continue
			}

			roles := event.roles()
			if len(roles) == 0 {
				h.consumer.logger.Debug("event affects no leaderboard",
					"event_type", event.EventType,
					"offset", message.Offset,
				)
				session.MarkMessage(message, "")
				continue
			}

			for _, role := range roles {
				pending[role] = true
			}
			session.MarkMessage(message, "")
		}
	}
}
