package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/realtime"
)

const (
	DefaultExchange = "form-displays"
	routingKey      = "view_settings"
)

type AMQPConfig struct {
	URL      string
	Exchange string
}

type amqpBus struct {
	log      *logger.Logger
	conn     *amqp.Connection
	exchange string

	// amqp channels are not safe for concurrent publishing
	pubMu sync.Mutex
	pub   *amqp.Channel
}

// NewAMQPBus dials RabbitMQ and declares the topic exchange the settings
// messages go through.
func NewAMQPBus(log *logger.Logger, cfg AMQPConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("missing amqp url")
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &amqpBus{
		log:      log.With("service", "AMQPSettingsBus"),
		conn:     conn,
		exchange: exchange,
		pub:      ch,
	}, nil
}

func (b *amqpBus) Publish(ctx context.Context, msg realtime.Message) error {
	if b == nil || b.pub == nil {
		return fmt.Errorf("amqp settings bus not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.pub.PublishWithContext(ctx,
		b.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        raw,
		},
	)
}

// StartForwarder binds an exclusive, server-named queue so every instance
// receives every message.
func (b *amqpBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if b == nil || b.conn == nil {
		return fmt.Errorf("amqp settings bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, b.exchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("amqp queue bind: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("amqp consume: %w", err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var msg realtime.Message
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					b.log.Warn("bad settings bus payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

func (b *amqpBus) Close() error {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
