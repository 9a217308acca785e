package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/HanWeiOng/ESDG10T4/config"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS order_detail (
		order_id    INT NOT NULL AUTO_INCREMENT,
		cart_amt    DOUBLE NOT NULL,
		user_id     INT NOT NULL,
		payment_id  INT NOT NULL,
		shipping_id INT NOT NULL,
		error_id    INT NULL,
		status      VARCHAR(10) NOT NULL,
		created     DATETIME(6) NOT NULL,
		modified    DATETIME(6) NOT NULL,
		PRIMARY KEY (order_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS order_item (
		item_id  INT NOT NULL AUTO_INCREMENT,
		order_id INT NOT NULL,
		book_id  VARCHAR(13) NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (item_id),
		INDEX ix_order_item_order_id (order_id),
		CONSTRAINT fk_order_item_order FOREIGN KEY (order_id)
			REFERENCES order_detail (order_id) ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB`,
}

// Open connects to MySQL and configures the pool. The connection is verified
// before returning.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*sqlx.DB, error) {
	dsn, err := cfg.MySQLDSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("connected to database",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
		zap.Duration("conn_max_lifetime", cfg.DBConnMaxLifetime),
	)
	return db, nil
}

// Migrate creates the order tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return nil
}

// Health pings the database and reports pool statistics.
func Health(ctx context.Context, db *sqlx.DB) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats, err
	}

	dbStats := db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)
	return stats, nil
}
