package messaging

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rxdesk/pharmacy-backend/pkg/config"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// ExchangeDeadLetter receives deliveries a consumer gave up on
const ExchangeDeadLetter = ExchangePharmacyEvents + ".dlx"

// RabbitMQ owns the single broker connection and channel shared by the
// pharmacy publisher and consumers.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	logger  *logger.Logger

	mu        sync.RWMutex
	lastError error
}

// New dials the broker and declares the pharmacy exchange together with its
// dead letter exchange.
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp.Table{
			"connection_name": config.ServiceName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	r := &RabbitMQ{
		conn:    conn,
		channel: ch,
		config:  cfg,
		logger:  log.WithComponent("rabbitmq"),
	}

	for _, name := range []string{ExchangePharmacyEvents, ExchangeDeadLetter} {
		if err := r.declareTopic(name); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}

	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	r.logger.Info().Str("exchange", ExchangePharmacyEvents).Msg("connected to RabbitMQ")
	return r, nil
}

// watch records why the connection dropped so /health can report it
func (r *RabbitMQ) watch(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		return
	}

	r.mu.Lock()
	r.lastError = amqpErr
	r.mu.Unlock()

	r.logger.Error().Err(amqpErr).Msg("RabbitMQ connection lost")
}

// Channel returns the shared channel
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close closes the channel and the connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}
	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	if err := r.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports whether the broker connection is usable
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return map[string]string{"status": "up"}
	}

	status := map[string]string{"status": "down", "error": "connection closed"}
	if r.lastError != nil {
		status["error"] = r.lastError.Error()
	}
	return status
}

func (r *RabbitMQ) declareTopic(name string) error {
	return r.channel.ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

// declareQueue declares a durable work queue that dead-letters into
// ExchangeDeadLetter, plus the parking queue bound behind it.
func (r *RabbitMQ) declareQueue(name string) error {
	if _, err := r.channel.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": name,
	}); err != nil {
		return err
	}

	parked := deadLetterQueue(name)
	if _, err := r.channel.QueueDeclare(parked, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s: %w", parked, err)
	}
	return r.channel.QueueBind(parked, name, ExchangeDeadLetter, false, nil)
}

func (r *RabbitMQ) bind(queue, exchange, pattern string) error {
	return r.channel.QueueBind(queue, pattern, exchange, false, nil)
}

func deadLetterQueue(queue string) string {
	return queue + ".parked"
}
