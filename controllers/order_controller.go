package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HanWeiOng/ESDG10T4/middlewares"
	"github.com/HanWeiOng/ESDG10T4/models"
	"github.com/HanWeiOng/ESDG10T4/repository"
)

// OrderStore is the persistence the handlers need. repository.OrderRepository
// satisfies it.
type OrderStore interface {
	List(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type OrderController struct {
	store     OrderStore
	publisher EventPublisher
	log       *zap.Logger
}

// NewOrderController wires the handlers. publisher may be nil, in which case
// no order events are emitted.
func NewOrderController(store OrderStore, publisher EventPublisher, log *zap.Logger) *OrderController {
	return &OrderController{store: store, publisher: publisher, log: log}
}

func (oc *OrderController) ListOrders(c *gin.Context) {
	defer recordOperation(c, "list")

	orders, err := oc.store.List(c.Request.Context())
	if err != nil {
		oc.log.Error("failed to list orders", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "An error occurred while retrieving the orders. "+err.Error(), nil)
		return
	}
	if len(orders) == 0 {
		respondNoOrders(c)
		return
	}

	respondData(c, http.StatusOK, gin.H{"orders": orders})
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	defer recordOperation(c, "details")

	rawID := c.Param("order_id")
	orderID, ok := parseOrderID(rawID)
	if !ok {
		respondOrderNotFound(c, rawID)
		return
	}

	order, err := oc.store.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondOrderNotFound(c, rawID)
			return
		}
		oc.log.Error("failed to get order", zap.String("order_id", rawID), zap.Error(err))
		respondError(c, http.StatusInternalServerError,
			"An error occurred while retrieving the order. "+err.Error(), orderIDData{OrderID: rawID})
		return
	}

	respondData(c, http.StatusOK, order)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer recordOperation(c, "create")

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err), nil)
		return
	}

	order := models.NewOrder(req)
	if err := oc.store.Create(c.Request.Context(), order); err != nil {
		oc.log.Error("failed to create order", zap.Int64("user_id", order.UserID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "An error occurred while creating the order. "+err.Error(), nil)
		return
	}

	oc.log.Info("order created", zap.Any("order", order))
	middlewares.ObserveOrderItems(len(order.Items))
	oc.publish(c.Request.Context(), models.EventOrderCreated, order)

	respondData(c, http.StatusCreated, order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	defer recordOperation(c, "update_status")

	rawID := c.Param("order_id")
	orderID, ok := parseOrderID(rawID)
	if !ok {
		respondOrderNotFound(c, rawID)
		return
	}
	ctx := c.Request.Context()

	exists, err := oc.store.Exists(ctx, orderID)
	if err != nil {
		oc.respondUpdateFailure(c, rawID, err)
		return
	}
	if !exists {
		respondOrderNotFound(c, rawID)
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err), orderIDData{OrderID: rawID})
		return
	}

	order, err := oc.store.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		oc.respondUpdateFailure(c, rawID, err)
		return
	}

	oc.publish(ctx, models.EventOrderStatusUpdated, order)
	respondData(c, http.StatusOK, order)
}

func (oc *OrderController) respondUpdateFailure(c *gin.Context, rawID string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		respondOrderNotFound(c, rawID)
		return
	}
	oc.log.Error("failed to update order", zap.String("order_id", rawID), zap.Error(err))
	respondError(c, http.StatusInternalServerError,
		"An error occurred while updating the order. "+err.Error(), orderIDData{OrderID: rawID})
}

// publish never fails the request; the event stream is best effort.
func (oc *OrderController) publish(ctx context.Context, eventType string, order *models.Order) {
	if oc.publisher == nil {
		return
	}
	if err := oc.publisher.PublishOrderEvent(ctx, models.NewOrderEvent(eventType, order)); err != nil {
		oc.log.Warn("failed to publish order event",
			zap.String("type", eventType), zap.Int64("order_id", order.OrderID), zap.Error(err))
	}
}

// parseOrderID reports false for ids that cannot match any row.
func parseOrderID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func recordOperation(c *gin.Context, operation string) {
	middlewares.RecordOrderOperation(operation, c.Writer.Status())
}
