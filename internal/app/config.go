package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config описывает настройки запуска сервиса. Все значения читаются из
// переменных окружения с префиксом RMS_.
type Config struct {
	// APIAddr — адрес HTTP API.
	APIAddr string `env:"RMS_API_ADDR" envDefault:":8080"`
	// MetricsAddr — адрес служебного сервера (метрики, health).
	MetricsAddr string `env:"RMS_METRICS_ADDR" envDefault:":9090"`

	// PostgresDSN — строка подключения к PostgreSQL. Пустая строка
	// переключает сервис на in-memory хранилище.
	PostgresDSN string `env:"RMS_POSTGRES_DSN"`

	// KafkaBrokers — список брокеров; пустой список отключает публикацию
	// событий, сервис продолжает работать без Kafka.
	KafkaBrokers []string `env:"RMS_KAFKA_BROKERS" envSeparator:","`

	// MaxTablesPerRestaurant — лимит броней одного ресторана на дату.
	MaxTablesPerRestaurant int `env:"RMS_MAX_TABLES_PER_RESTAURANT" envDefault:"15"`
	// MaxReservationsPerDay — общий дневной лимит броней по всем ресторанам.
	MaxReservationsPerDay int `env:"RMS_MAX_RESERVATIONS_PER_DAY" envDefault:"20"`

	// RateLimitRPS и RateLimitBurst настраивают лимит запросов на клиента;
	// RateLimitRPS <= 0 отключает ограничение.
	RateLimitRPS   float64 `env:"RMS_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RMS_RATE_LIMIT_BURST" envDefault:"40"`

	// OutboxPollInterval — период опроса transactional outbox.
	OutboxPollInterval time.Duration `env:"RMS_OUTBOX_POLL_INTERVAL" envDefault:"2s"`

	// ShutdownTimeout — предел ожидания graceful shutdown.
	ShutdownTimeout time.Duration `env:"RMS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadConfig читает конфигурацию из окружения и валидирует лимиты.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.MaxTablesPerRestaurant <= 0 {
		return Config{}, fmt.Errorf("RMS_MAX_TABLES_PER_RESTAURANT must be positive, got %d", cfg.MaxTablesPerRestaurant)
	}
	if cfg.MaxReservationsPerDay <= 0 {
		return Config{}, fmt.Errorf("RMS_MAX_RESERVATIONS_PER_DAY must be positive, got %d", cfg.MaxReservationsPerDay)
	}
	if cfg.OutboxPollInterval <= 0 {
		return Config{}, fmt.Errorf("RMS_OUTBOX_POLL_INTERVAL must be positive, got %s", cfg.OutboxPollInterval)
	}
	return cfg, nil
}
