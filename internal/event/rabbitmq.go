package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"claims-service/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConnection holds the RabbitMQ connection and channel
type RabbitMQConnection struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel

	publishMu sync.Mutex
	declared  sync.Map
}

// ConnectRabbitMQ establishes a connection to RabbitMQ
func ConnectRabbitMQ(cfg config.RabbitMQConfig) (*RabbitMQConnection, error) {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	slog.Info("Connected to RabbitMQ", "host", cfg.Host, "port", cfg.Port)

	return &RabbitMQConnection{
		Connection: conn,
		Channel:    ch,
	}, nil
}

// DeclareQueue declares a durable queue once per connection.
func (r *RabbitMQConnection) DeclareQueue(name string) error {
	if _, done := r.declared.Load("queue:" + name); done {
		return nil
	}
	_, err := r.Channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	r.declared.Store("queue:"+name, struct{}{})
	return nil
}

// DeclareTopicExchange declares a durable topic exchange once per connection.
func (r *RabbitMQConnection) DeclareTopicExchange(name string) error {
	if _, done := r.declared.Load("exchange:" + name); done {
		return nil
	}
	err := r.Channel.ExchangeDeclare(
		name,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}
	r.declared.Store("exchange:"+name, struct{}{})
	return nil
}

// PublishJSON sends a persistent JSON message. An empty exchange routes
// straight to the queue named by routingKey.
func (r *RabbitMQConnection) PublishJSON(ctx context.Context, exchange, routingKey string, body []byte, messageID string) error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	return r.Channel.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

func (r *RabbitMQConnection) IsHealthy() bool {
	return r != nil && r.Connection != nil && !r.Connection.IsClosed()
}

// Close closes the RabbitMQ connection and channel
func (r *RabbitMQConnection) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			slog.Error("failed to close RabbitMQ channel", "error", err)
		}
	}
	if r.Connection != nil {
		if err := r.Connection.Close(); err != nil {
			slog.Error("failed to close RabbitMQ connection", "error", err)
			return err
		}
	}
	slog.Info("RabbitMQ connection closed")
	return nil
}
