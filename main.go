package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HanWeiOng/ESDG10T4/config"
	"github.com/HanWeiOng/ESDG10T4/consumers"
	"github.com/HanWeiOng/ESDG10T4/controllers"
	"github.com/HanWeiOng/ESDG10T4/database"
	"github.com/HanWeiOng/ESDG10T4/logger"
	"github.com/HanWeiOng/ESDG10T4/rabbitmq"
	"github.com/HanWeiOng/ESDG10T4/repository"
	"github.com/HanWeiOng/ESDG10T4/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(cfg, l); err != nil {
		l.Fatal("order service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	ctx := context.Background()

	db, err := database.Open(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		l.Info("database migrations completed")
	}

	var publisher controllers.EventPublisher
	if cfg.MessagingEnabled() {
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := rmq.Close(); err != nil {
				l.Warn("failed to close rabbitmq", zap.Error(err))
			}
		}()
		if err := rmq.SetupQueues(); err != nil {
			return fmt.Errorf("setup rabbitmq queues: %w", err)
		}
		if err := consumers.StartOrderConsumer(rmq.Channel, cfg, l); err != nil {
			return err
		}
		publisher = rmq
		l.Info("order events enabled", zap.String("exchange", cfg.OrderExchange))
	}

	gin.SetMode(cfg.GinMode)
	orders := controllers.NewOrderController(repository.NewOrderRepository(db), publisher, l)
	r := routes.New(routes.Options{
		Config: cfg,
		Logger: l,
		Orders: orders,
		Health: func(ctx context.Context) (map[string]string, error) {
			return database.Health(ctx, db)
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.RequestTimeout),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("order service starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		l.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// writeTimeout leaves room to flush the response after the request deadline.
// A disabled request timeout disables the write timeout too.
func writeTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return 0
	}
	return requestTimeout + 5*time.Second
}
