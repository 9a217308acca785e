package consumers

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/HanWeiOng/ESDG10T4/config"
	"github.com/HanWeiOng/ESDG10T4/models"
)

// StartOrderConsumer consumes the order queue and its dead-letter queue until
// the channel is closed.
func StartOrderConsumer(ch *amqp.Channel, cfg *config.Config, log *zap.Logger) error {
	msgs, err := ch.Consume(cfg.OrderQueue, "order-service", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.OrderQueue, err)
	}
	dlqMsgs, err := ch.Consume(cfg.DeadLetterQueue, "order-service-dlq", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.DeadLetterQueue, err)
	}

	go func() {
		for msg := range msgs {
			processOrderMessage(log, msg)
		}
	}()
	go func() {
		for msg := range dlqMsgs {
			processDeadLetterMessage(log, msg)
		}
	}()
	return nil
}

// processOrderMessage logs the event. Undecodable messages are rejected
// without requeue so the broker moves them to the dead-letter queue.
func processOrderMessage(log *zap.Logger, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic in message processing", zap.Any("panic", r))
			_ = msg.Nack(false, false)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.OrderID == 0 || event.Type == "" {
		log.Warn("invalid order event", zap.ByteString("body", msg.Body), zap.Error(err))
		if err := msg.Nack(false, false); err != nil {
			log.Error("failed to nack order event", zap.Error(err))
		}
		return
	}

	switch event.Type {
	case models.EventOrderCreated, models.EventOrderStatusUpdated:
		log.Info("order event",
			zap.String("type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.Int64("user_id", event.UserID),
			zap.String("status", event.Status),
			zap.Float64("cart_amt", event.CartAmt),
			zap.Int("items", event.Items),
			zap.Time("occurred", event.Occurred),
		)
	default:
		log.Warn("unknown order event type", zap.String("type", event.Type), zap.Int64("order_id", event.OrderID))
	}

	if err := msg.Ack(false); err != nil {
		log.Error("failed to ack order event", zap.Error(err))
	}
}

func processDeadLetterMessage(log *zap.Logger, msg amqp.Delivery) {
	log.Warn("dead-lettered order event", zap.ByteString("body", msg.Body), zap.String("type", msg.Type))
	if err := msg.Ack(false); err != nil {
		log.Error("failed to ack dead letter", zap.Error(err))
	}
}
