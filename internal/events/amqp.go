package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/swaptoon/swap-engine/internal/model"
)

const (
	ExchangeName = "swaptoon_trades"
	ExchangeType = "topic"
)

// TradePublisher publishes completed trades to downstream consumers.
type TradePublisher interface {
	Publish(ctx context.Context, trade model.Trade) error
}

// RoutingKey is swap.<source>.<target>, lowercased (e.g. swap.btc.usdc).
func RoutingKey(trade model.Trade) string {
	return fmt.Sprintf("swap.%s.%s",
		strings.ToLower(trade.SourceAsset.Symbol),
		strings.ToLower(trade.TargetAsset.Symbol))
}

// AMQPPublisher publishes trades as JSON to the topic exchange.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects to RabbitMQ and declares the exchange. It retries
// attempts times, waiting backoff between tries.
func DialAMQP(url string, attempts int, backoff time.Duration) (*AMQPPublisher, error) {
	var conn *amqp.Connection
	var err error

	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		slog.Warn("rabbitmq connect failed", "attempt", i+1, "err", err)
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, trade model.Trade) error {
	body, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("could not marshal trade: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey(trade),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    trade.ID,
			Timestamp:    trade.Timestamp,
			Body:         body,
		},
	)
}

// Channel exposes the underlying channel, e.g. for declaring test queues.
func (p *AMQPPublisher) Channel() *amqp.Channel {
	return p.ch
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
