package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию NAHB-сервера.
type Config struct {
	// Настройки сервера
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Настройки PostgreSQL (структурное хранилище + сессии)
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки MongoDB (хранилище контента)
	MongoURI    string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDBName string `envconfig:"MONGODB_DB_NAME" default:"nahb"`

	// Настройки Redis (хранилище токенов)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string

	// Настройки RabbitMQ (события платформы). Пустой URL отключает публикацию.
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" default:""`
	EventsQueueName string `envconfig:"EVENTS_QUEUE_NAME" default:"nahb_events"`

	// Настройки JWT - Секретные поля БЕЗ envconfig тегов
	JWTSecret       string
	PasswordPepper  string
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"168h"` // 7 дней

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins разбивает строку CORSAllowedOrigins на срез.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	// Загружаем НЕсекретные переменные
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации nahb-server: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.PasswordPepper, loadErr = ReadSecret("password_pepper")
	if loadErr != nil {
		return nil, loadErr
	}

	// Загружаем НЕОБЯЗАТЕЛЬНЫЕ секреты (например, пароль Redis)
	redisPass, err := ReadSecret("redis_password")
	if err == nil {
		cfg.RedisPassword = redisPass
	} else {
		// Если секрет не найден, просто оставляем поле пустым
		log.Printf("Optional secret 'redis_password' not found: %v. Assuming no password.", err)
	}

	log.Printf("Конфигурация NAHB-сервера загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  MongoDB: %s/%s", cfg.MongoURI, cfg.MongoDBName)
	log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	if cfg.RabbitMQURL != "" {
		log.Printf("  RabbitMQ: %s, очередь %s", MaskAMQPURL(cfg.RabbitMQURL), cfg.EventsQueueName)
	} else {
		log.Printf("  RabbitMQ: не настроен, публикация событий отключена")
	}
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}

// MaskAMQPURL убирает пароль из URL для логов.
func MaskAMQPURL(rabbitURL string) string {
	u, err := url.Parse(rabbitURL)
	if err != nil {
		return "amqp://***"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.Redacted()
}
