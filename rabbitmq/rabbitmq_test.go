package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/HanWeiOng/ESDG10T4/config"
	"github.com/HanWeiOng/ESDG10T4/models"
)

func TestEventPriority(t *testing.T) {
	cases := []struct {
		name  string
		event models.OrderEvent
		want  uint8
	}{
		{"routine", models.OrderEvent{Status: "NEW", CartAmt: 20}, 5},
		{"cancelled", models.OrderEvent{Status: "cancelled", CartAmt: 20}, 8},
		{"large cart", models.OrderEvent{Status: "NEW", CartAmt: 1500}, 9},
		{"large cancelled", models.OrderEvent{Status: "CANCELLED", CartAmt: 1500}, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EventPriority(tc.event); got != tc.want {
				t.Fatalf("priority=%d, want %d", got, tc.want)
			}
		})
	}
}

func TestNewPublishing(t *testing.T) {
	event := models.OrderEvent{
		OrderID:  12,
		UserID:   7,
		Type:     models.EventOrderCreated,
		Status:   models.StatusNew,
		Items:    2,
		Occurred: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}

	msg, err := newPublishing(event)
	if err != nil {
		t.Fatalf("newPublishing: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" || msg.Type != models.EventOrderCreated {
		t.Fatalf("unexpected publishing: %+v", msg)
	}

	var decoded models.OrderEvent
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if decoded.OrderID != 12 || decoded.Items != 2 || !decoded.Occurred.Equal(event.Occurred) {
		t.Fatalf("decoded=%+v", decoded)
	}
}

func TestDeadLetterExchange(t *testing.T) {
	cfg := &config.Config{DeadLetterQueue: "orders_dlq"}
	if got := deadLetterExchange(cfg); got != "orders_dlq_exchange" {
		t.Fatalf("exchange=%q", got)
	}
}

func TestClose_NilHandles(t *testing.T) {
	r := &RabbitMQ{}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
