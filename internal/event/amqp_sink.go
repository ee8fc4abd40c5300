package event

import (
	"context"
	"encoding/json"
	"fmt"
)

// AMQPSink publishes envelopes to a topic exchange keyed by event type.
type AMQPSink struct {
	conn     *RabbitMQConnection
	exchange string
}

func NewAMQPSink(conn *RabbitMQConnection, exchange string) (*AMQPSink, error) {
	if err := conn.DeclareTopicExchange(exchange); err != nil {
		return nil, err
	}
	return &AMQPSink{conn: conn, exchange: exchange}, nil
}

func (s *AMQPSink) Name() string {
	return "amqp"
}

func (s *AMQPSink) Send(ctx context.Context, envelope *Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	if err := s.conn.PublishJSON(ctx, s.exchange, string(envelope.EventType), body, envelope.EventID.String()); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", envelope.EventType, s.exchange, err)
	}
	return nil
}
