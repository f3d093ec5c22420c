package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// MessageHandler processes one decoded event
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer reads one durable queue and dispatches events by type.
//
// A failed delivery is requeued once. If it fails again on redelivery it is
// rejected and dead-lettered into the queue's parking queue.
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer declares queueName with its parking queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if err := rmq.declareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log.WithComponent("consumer").WithQueue(queueName),
	}, nil
}

// Subscribe binds the queue to exchange for routing keys matching pattern
func (c *Consumer) Subscribe(exchange, pattern string) error {
	if exchange != ExchangePharmacyEvents {
		if err := c.rmq.declareTopic(exchange); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}
	if err := c.rmq.bind(c.queueName, exchange, pattern); err != nil {
		return fmt.Errorf("failed to bind %s to %s: %w", c.queueName, exchange, err)
	}

	c.logger.Info().Str("exchange", exchange).Str("routing_key", pattern).Msg("subscribed")
	return nil
}

// RegisterHandler sets the handler for eventType. Call before Start.
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start consumes until ctx is cancelled or the channel closes
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queueName, err)
	}

	c.logger.Info().Int("handlers", len(c.handlers)).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("delivery channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.MessageId).Msg("undecodable delivery, dead-lettering")
		c.settle(msg.Reject(false))
		return
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler for event type")
		c.settle(msg.Ack(false))
		return
	}

	log := c.logger.With().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Logger()

	if err := handler(WithCorrelationID(ctx, event.CorrelationID), &event); err != nil {
		if msg.Redelivered {
			log.Error().Err(err).Msg("event failed on redelivery, dead-lettering")
			c.settle(msg.Reject(false))
			return
		}
		log.Warn().Err(err).Msg("event failed, requeueing")
		c.settle(msg.Nack(false, true))
		return
	}

	log.Debug().Msg("event processed")
	c.settle(msg.Ack(false))
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to settle delivery")
	}
}
