package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	LogLevel        string
	GinMode         string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DBDSN             string
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBAutoMigrate     bool

	JWTSecret        string
	CORSAllowOrigins []string

	RabbitMQURL     string
	OrderExchange   string
	OrderQueue      string
	DeadLetterQueue string
	MaxPriority     int
}

// LoadConfig reads the environment, after merging an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		GinMode:          getEnv("GIN_MODE", "release"),
		DBDSN:            getEnvFromFile("DB_DSN_FILE", "DB_DSN", ""),
		DBUser:           getEnv("DB_USER", "root"),
		DBPassword:       getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", ""),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "3306"),
		DBName:           getEnv("DB_NAME", "order_schema"),
		JWTSecret:        getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", ""),
		CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
		RabbitMQURL:      getEnvFromFile("RABBITMQ_URL_FILE", "RABBITMQ_URL", ""),
		OrderExchange:    getEnv("ORDER_EXCHANGE", "orders_exchange"),
		OrderQueue:       getEnv("ORDER_QUEUE", "orders_queue"),
		DeadLetterQueue:  getEnv("DEAD_LETTER_QUEUE", "orders_dead_letter_queue"),
		MaxPriority:      10,
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 5001); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.DBConnMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", 299*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = getEnvBool("DB_AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MySQLDSN returns the connection string for the order database. DB_DSN wins
// over the individual parts; either way timestamps are parsed as UTC.
func (c *Config) MySQLDSN() (string, error) {
	var dsn *mysql.Config
	if c.DBDSN != "" {
		parsed, err := mysql.ParseDSN(c.DBDSN)
		if err != nil {
			return "", fmt.Errorf("invalid DB_DSN: %w", err)
		}
		dsn = parsed
	} else {
		dsn = mysql.NewConfig()
		dsn.User = c.DBUser
		dsn.Passwd = c.DBPassword
		dsn.Net = "tcp"
		dsn.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
		dsn.DBName = c.DBName
	}
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	return dsn.FormatDSN(), nil
}

func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func (c *Config) MessagingEnabled() bool {
	return c.RabbitMQURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	// plain integers are seconds, like the pool_recycle setting they replace
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
