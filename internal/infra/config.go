package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всего бэкенда.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Reasoner ReasonerConfig `mapstructure:"reasoner"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
// Если URL пустой — сервис работает на process-local хранилищах (demo-режим).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub для инвалидации кэша политик).
// Пустой Addr допустим: одиночный инстанс обойдется локальной инвалидацией.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит настройки сессионной куки (HS256 JWT).
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

// ReasonerConfig — настройки внешнего reasoning-сервиса (OpenAI-совместимый API).
type ReasonerConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	SelectModel  string `mapstructure:"select_model"`
	ExplainModel string `mapstructure:"explain_model"`

	// Независимые бюджеты времени на стадии: выбор корзины и объяснение
	SelectTimeout  time.Duration `mapstructure:"select_timeout"`
	ExplainTimeout time.Duration `mapstructure:"explain_timeout"`

	// Rate limit на исходящие вызовы
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	// Настройки Circuit Breaker
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// EngineConfig содержит настройки доменного ядра.
type EngineConfig struct {
	// Направление пересчета веса цены из priceSensitivity:
	// "direct"  — выше чувствительность => выше вес цены (дефолт)
	// "inverse" — выше чувствительность => ниже вес цены
	PriceWeightDirection string `mapstructure:"price_weight_direction"`

	// Буфер асинхронной записи сессий рекомендаций
	SessionBufferSize    int           `mapstructure:"session_buffer_size"`
	SessionFlushInterval time.Duration `mapstructure:"session_flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. Переменные окружения перекрывают файл: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла (отсутствие файла — не ошибка, работаем на ENV и дефолтах)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// API-ключ может прилететь напрямую (Docker/K8s секреты)
	if cfg.Reasoner.APIKey == "" {
		cfg.Reasoner.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_name", "meagent_user")
	v.SetDefault("auth.jwt_secret", "dev-only-secret")
	v.SetDefault("reasoner.select_model", "gpt-4.1")
	v.SetDefault("reasoner.explain_model", "gpt-5-mini")
	v.SetDefault("reasoner.select_timeout", 20*time.Second)
	v.SetDefault("reasoner.explain_timeout", 12*time.Second)
	v.SetDefault("reasoner.rate_limit", 25.0)
	v.SetDefault("reasoner.rate_burst", 10)
	v.SetDefault("reasoner.cb_max_requests", 3)
	v.SetDefault("reasoner.cb_interval", 5*time.Second)
	v.SetDefault("reasoner.cb_timeout", 30*time.Second)
	v.SetDefault("engine.price_weight_direction", "direct")
	v.SetDefault("engine.session_buffer_size", 1000)
	v.SetDefault("engine.session_flush_interval", 500*time.Millisecond)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
