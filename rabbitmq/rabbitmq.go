package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/HanWeiOng/ESDG10T4/config"
	"github.com/HanWeiOng/ESDG10T4/models"
)

const (
	defaultPriority   = 5
	cancelledPriority = 8
	largeCartPriority = 9
	largeCartAmount   = 1000

	// BindingKey matches every order event routing key.
	BindingKey = "order.#"
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	mu sync.Mutex
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

func deadLetterExchange(cfg *config.Config) string {
	return cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the order exchange and queue, and the dead-letter
// exchange that rejected order events are routed to.
func (r *RabbitMQ) SetupQueues() error {
	dlx := deadLetterExchange(r.Cfg)
	if err := r.Channel.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(r.Cfg.DeadLetterQueue, true, false, false, false,
		amqp.Table{"x-queue-type": "classic"}); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}
	if err := r.Channel.QueueBind(r.Cfg.DeadLetterQueue, r.Cfg.DeadLetterQueue, dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(r.Cfg.OrderExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(r.Cfg.OrderQueue, true, false, false, false, amqp.Table{
		"x-max-priority":            r.Cfg.MaxPriority,
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, BindingKey, r.Cfg.OrderExchange, false, nil); err != nil {
		return fmt.Errorf("bind order queue: %w", err)
	}
	return nil
}

// PublishOrderEvent sends event to the order exchange, routed by its type.
func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Channel.PublishWithContext(ctx, r.Cfg.OrderExchange, event.Type, false, false, msg)
}

func newPublishing(event models.OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode order event: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		Priority:     EventPriority(event),
	}, nil
}

// EventPriority ranks large carts and cancellations ahead of routine events.
func EventPriority(event models.OrderEvent) uint8 {
	switch {
	case event.CartAmt > largeCartAmount:
		return largeCartPriority
	case strings.EqualFold(event.Status, "CANCELLED"):
		return cancelledPriority
	default:
		return defaultPriority
	}
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			return err
		}
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}
