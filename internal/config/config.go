// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageDriver           string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"DATABASE_URL"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	AdminSecret             string `yaml:"admin_secret" env:"ADMIN_SECRET"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Credits                 `yaml:"credits"`
	Premium                 `yaml:"premium"`
	Payments                `yaml:"payments"`
	Scheduler               `yaml:"scheduler"`
	AntiFraud               `yaml:"antifraud"`
	RateLimits              `yaml:"rate_limits"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает работу лимитера только в памяти процесса.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env-default:"1"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"2s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"500ms"`
}

// RabbitMQ структура для подключения к шине событий. При пустом URL события пишутся только в лог.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Credits настройки бесплатных кредитов
type Credits struct {
	FreeCredits      int           `yaml:"free_credits" env:"FREE_CREDITS" env-default:"7"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env-default:"2s"`
}

// Premium настройки премиум-доступа
type Premium struct {
	Days  int   `yaml:"days" env:"PREMIUM_DAYS" env-default:"30"`
	Price int64 `yaml:"price" env:"PREMIUM_PRICE" env-default:"1990"`
}

// Payments настройки мгновенных платежей
type Payments struct {
	ExpiryWindow time.Duration `yaml:"expiry_window" env-default:"30m"`
	PixKey       string        `yaml:"pix_key" env:"PIX_KEY" env-default:"pagamentos@pokerstats.app"`
	MerchantName string        `yaml:"merchant_name" env-default:"POKERSTATS"`
	MerchantCity string        `yaml:"merchant_city" env-default:"SAO PAULO"`
}

// Scheduler настройки автоподтверждения платежей
type Scheduler struct {
	Disabled   bool          `yaml:"disabled" env:"SCHEDULER_DISABLED"`
	Interval   time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"10s"`
	Threshold  time.Duration `yaml:"threshold" env:"SCHEDULER_THRESHOLD" env-default:"30s"`
	ClaimLease time.Duration `yaml:"claim_lease" env-default:"1m"`
}

// AntiFraud настройки проверки дубликатов аккаунтов
type AntiFraud struct {
	IPCooldown           time.Duration `yaml:"ip_cooldown" env-default:"24h"`
	MaxAccountsPerDevice int           `yaml:"max_accounts_per_device" env-default:"2"`
	Retention            time.Duration `yaml:"retention" env-default:"720h"`
}

// RateLimit лимит для одного класса маршрутов
type RateLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// RateLimits лимиты по классам маршрутов
type RateLimits struct {
	Auth         RateLimit `yaml:"auth"`
	Credits      RateLimit `yaml:"credits"`
	Payments     RateLimit `yaml:"payments"`
	Webhook      RateLimit `yaml:"webhook"`
	Default      RateLimit `yaml:"default"`
	WebhookBurst int       `yaml:"webhook_burst" env-default:"20"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла, применяет значения по умолчанию и проверяет его.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.RateLimits.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (r *RateLimits) applyDefaults() {
	fill := func(rl *RateLimit, limit int, window time.Duration) {
		if rl.Limit == 0 {
			rl.Limit = limit
		}
		if rl.Window == 0 {
			rl.Window = window
		}
	}
	fill(&r.Auth, 5, time.Minute)
	fill(&r.Credits, 60, time.Minute)
	fill(&r.Payments, 10, time.Minute)
	fill(&r.Webhook, 120, time.Minute)
	fill(&r.Default, 100, time.Minute)
}

// Validate проверяет обязательные и положительные значения.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecretKey == "" {
		errs = append(errs, errors.New("jwt secret key is empty"))
	}
	if c.StorageDriver != "postgres" && c.StorageDriver != "memory" {
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	if c.StorageDriver == "postgres" && c.StorageConnectionString == "" {
		errs = append(errs, errors.New("storage connection string is empty"))
	}
	if c.Scheduler.Interval <= 0 || c.Scheduler.Threshold <= 0 {
		errs = append(errs, errors.New("scheduler interval and threshold must be positive"))
	}
	if c.Payments.ExpiryWindow <= 0 {
		errs = append(errs, errors.New("payment expiry window must be positive"))
	}
	if c.FreeCredits < 0 {
		errs = append(errs, errors.New("free credits must not be negative"))
	}
	if c.Premium.Days <= 0 || c.Premium.Price <= 0 {
		errs = append(errs, errors.New("premium days and price must be positive"))
	}
	for name, rl := range c.RateLimits.byClass() {
		if rl.Limit <= 0 || rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("rate limit %s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

func (r RateLimits) byClass() map[string]RateLimit {
	return map[string]RateLimit{
		"auth":     r.Auth,
		"credits":  r.Credits,
		"payments": r.Payments,
		"webhook":  r.Webhook,
		"default":  r.Default,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageDriver: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"Scheduler:\n"+
			"  Interval: %s\n"+
			"  Threshold: %s\n"+
			"Credits:\n"+
			"  FreeCredits: %d\n",
		c.Env,
		c.StorageDriver,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.Scheduler.Interval,
		c.Scheduler.Threshold,
		c.FreeCredits,
	)
}
