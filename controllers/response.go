package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every order endpoint.
type Response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type orderIDData struct {
	OrderID string `json:"order_id"`
}

func respondData(c *gin.Context, code int, data any) {
	c.JSON(code, Response{Code: code, Data: data})
}

func respondError(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Code: code, Data: data, Message: message})
}

func respondOrderNotFound(c *gin.Context, rawID string) {
	respondError(c, http.StatusNotFound, "Order not found.", orderIDData{OrderID: rawID})
}

// respondNoOrders answers a list request that matched nothing. Clients of the
// original service expect a 404 here rather than an empty 200.
func respondNoOrders(c *gin.Context) {
	respondError(c, http.StatusNotFound, "There are no orders.", nil)
}
