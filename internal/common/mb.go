package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Exchange string

type Queue string

type BindingKey string

type MessageProducer interface {
	Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error
}

type MessageConsumer interface {
	Consume(key BindingKey, exchange Exchange, queue Queue) (<-chan amqp.Delivery, error)
}

const (
	UserExchange     Exchange   = "user_exchange"
	UserCreatedQueue Queue      = "user_created_queue"
	UserCreatedKey   BindingKey = "user.created"

	// Deliveries rejected from UserCreatedQueue are routed here for inspection.
	UserDeadLetterExchange Exchange = "user_exchange.dlx"
	UserDeadLetterQueue    Queue    = "user_created_queue.dead"
)

// consumerPrefetch bounds the unacknowledged deliveries a consumer holds.
const consumerPrefetch = 8

// UserCreatedEvent is the body published on UserCreatedKey.
type UserCreatedEvent struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Binding declares a durable direct exchange, a queue and the key that routes between them.
type Binding struct {
	Exchange   Exchange
	Queue      Queue
	Key        BindingKey
	DeadLetter Exchange
}

type MessageBroker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewMessageBroker(URI string) (*MessageBroker, error) {
	conn, ch, err := connectAMQP(URI)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("could not set prefetch: %w", err)
	}

	return &MessageBroker{
		conn: conn,
		ch:   ch,
	}, nil
}

func AMQPURI(host, port, user, password string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", user, password, host, port)
}

func connectAMQP(URI string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(URI)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	return conn, ch, nil
}

// Close closes the connection and channel of the message broker.
func (mb *MessageBroker) Close() error {
	if err := mb.ch.Close(); err != nil {
		return err
	}

	return mb.conn.Close()
}

// Declare creates b on the broker. Declaring an existing binding with the same settings is a
// no-op.
func (mb *MessageBroker) Declare(b Binding) error {
	if err := mb.ch.ExchangeDeclare(string(b.Exchange), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("could not declare exchange %s: %w", b.Exchange, err)
	}

	var args amqp.Table
	if b.DeadLetter != "" {
		args = amqp.Table{"x-dead-letter-exchange": string(b.DeadLetter)}
	}

	if _, err := mb.ch.QueueDeclare(string(b.Queue), true, false, false, false, args); err != nil {
		return fmt.Errorf("could not declare queue %s: %w", b.Queue, err)
	}

	if err := mb.ch.QueueBind(string(b.Queue), string(b.Key), string(b.Exchange), false, nil); err != nil {
		return fmt.Errorf("could not bind queue %s: %w", b.Queue, err)
	}

	return nil
}

// SetupUserExchange declares the user.created route and its dead letter queue.
func SetupUserExchange(mb *MessageBroker) error {
	err := mb.Declare(Binding{
		Exchange: UserDeadLetterExchange,
		Queue:    UserDeadLetterQueue,
		Key:      UserCreatedKey,
	})
	if err != nil {
		return err
	}

	return mb.Declare(Binding{
		Exchange:   UserExchange,
		Queue:      UserCreatedQueue,
		Key:        UserCreatedKey,
		DeadLetter: UserDeadLetterExchange,
	})
}

func (mb *MessageBroker) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	err := mb.ch.PublishWithContext(ctx, string(exchange), string(key), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         msg,
	})
	if err != nil {
		return fmt.Errorf("could not publish message: %w", err)
	}

	return nil
}

// PublishJSON encodes v and publishes it with p.
func PublishJSON(ctx context.Context, p MessageProducer, v any, key BindingKey, exchange Exchange) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}

	return p.Publish(ctx, msg, key, exchange)
}

func (mb *MessageBroker) Consume(key BindingKey, exchange Exchange, queue Queue) (<-chan amqp.Delivery, error) {
	tag := fmt.Sprintf("%s-%s", key, uuid.NewString()[:8])

	msgs, err := mb.ch.Consume(string(queue), tag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("could not consume message: %w", err)
	}

	return msgs, nil
}

// DiscardProducer drops every message. It stands in for the broker when RabbitMQ is not configured.
type DiscardProducer struct{}

func (DiscardProducer) Publish(context.Context, []byte, BindingKey, Exchange) error {
	return nil
}
