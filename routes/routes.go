package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HanWeiOng/ESDG10T4/config"
	"github.com/HanWeiOng/ESDG10T4/controllers"
	"github.com/HanWeiOng/ESDG10T4/middlewares"
)

type Options struct {
	Config *config.Config
	Logger *zap.Logger
	Orders *controllers.OrderController
	Health controllers.HealthCheck
}

// New assembles the gin engine: ambient middleware, /health, /metrics and the
// /order resource.
func New(opts Options) *gin.Engine {
	cfg := opts.Config

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.RequestLogger(opts.Logger),
		cors.New(corsConfig(cfg.CORSAllowOrigins)),
		middlewares.PrometheusMiddleware(),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", controllers.Health(opts.Health))

	orders := r.Group("/order")
	orders.Use(middlewares.Timeout(cfg.RequestTimeout))
	if cfg.AuthEnabled() {
		orders.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	}
	{
		orders.GET("", opts.Orders.ListOrders)
		orders.GET("/:order_id", opts.Orders.GetOrder)
		orders.POST("", opts.Orders.CreateOrder)
		orders.PUT("/:order_id", opts.Orders.UpdateOrderStatus)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders: []string{middlewares.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
