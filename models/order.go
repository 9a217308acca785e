package models

import (
	"time"
)

const StatusNew = "NEW"

// Order is a row of order_detail together with its line items.
type Order struct {
	OrderID    int64       `db:"order_id" json:"order_id"`
	UserID     int64       `db:"user_id" json:"user_id"`
	CartAmt    float64     `db:"cart_amt" json:"cart_amt"`
	PaymentID  int64       `db:"payment_id" json:"payment_id"`
	ShippingID int64       `db:"shipping_id" json:"shipping_id"`
	ErrorID    *int64      `db:"error_id" json:"error_id"`
	Status     string      `db:"status" json:"status"`
	Created    time.Time   `db:"created" json:"created"`
	Modified   time.Time   `db:"modified" json:"modified"`
	Items      []OrderItem `db:"-" json:"order_item"`
}

// OrderItem is a row of order_item.
type OrderItem struct {
	ItemID   int64  `db:"item_id" json:"item_id"`
	OrderID  int64  `db:"order_id" json:"order_id"`
	BookID   string `db:"book_id" json:"book_id"`
	Quantity int    `db:"quantity" json:"quantity"`
}

// CartItem is one entry of the cart submitted on order creation.
type CartItem struct {
	BookID   string `json:"book_id" binding:"required,max=13"`
	Quantity int    `json:"quantity" binding:"gt=0,int32"`
}

// CreateOrderRequest is the POST /order body. Integer fields are bounded by
// the int32 validation alias because their columns are MySQL INT.
type CreateOrderRequest struct {
	UserID     *int64     `json:"user_id" binding:"required,int32"`
	CartAmt    float64    `json:"cart_amt" binding:"gte=0"`
	PaymentID  int64      `json:"payment_id" binding:"int32"`
	ShippingID int64      `json:"shipping_id" binding:"int32"`
	CartItems  []CartItem `json:"cart_item" binding:"required,dive"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,max=10"`
}

// NewOrder builds an unsaved order in the NEW status from a create request.
func NewOrder(req CreateOrderRequest) *Order {
	order := &Order{
		CartAmt:    req.CartAmt,
		PaymentID:  req.PaymentID,
		ShippingID: req.ShippingID,
		Status:     StatusNew,
		Items:      make([]OrderItem, 0, len(req.CartItems)),
	}
	if req.UserID != nil {
		order.UserID = *req.UserID
	}
	for _, item := range req.CartItems {
		order.Items = append(order.Items, OrderItem{BookID: item.BookID, Quantity: item.Quantity})
	}
	return order
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
)

type OrderEvent struct {
	OrderID  int64     `json:"order_id"`
	UserID   int64     `json:"user_id"`
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	CartAmt  float64   `json:"cart_amt"`
	Items    int       `json:"items"`
	Occurred time.Time `json:"occurred"`
}

func NewOrderEvent(eventType string, order *Order) OrderEvent {
	return OrderEvent{
		OrderID:  order.OrderID,
		UserID:   order.UserID,
		Type:     eventType,
		Status:   order.Status,
		CartAmt:  order.CartAmt,
		Items:    len(order.Items),
		Occurred: order.Modified,
	}
}
