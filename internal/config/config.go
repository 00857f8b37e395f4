// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string        `yaml:"env" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string        `yaml:"migrations_path" env-default:"./migrations"`
	SlotsCacheTTL           time.Duration `yaml:"slots_cache_ttl" env-default:"10s"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	Reconciler              `yaml:"reconciler"`
	Auth                    `yaml:"auth"`
	RateLimit               `yaml:"rate_limit"`
	RoleSync                `yaml:"role_sync"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Reconciler структура для настройки сверки истёкших подписок
type Reconciler struct {
	ReconcileInterval time.Duration `yaml:"interval" env-default:"5m"`
}

// Auth структура для работы с jwt-токеном и привязкой идентичностей
type Auth struct {
	JWTSecretKey   string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL       time.Duration `yaml:"token_ttl" env-default:"24h"`
	LinkSecretHash string        `yaml:"link_secret_hash" env:"LINK_SECRET_HASH"`
	Admins         []string      `yaml:"admins"`
}

// RateLimit структура для ограничения частоты проверок лицензий
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
	// TrustProxy включает чтение адреса клиента из X-Forwarded-For и X-Real-IP.
	// Включать только за доверенным обратным прокси.
	TrustProxy bool `yaml:"trust_proxy" env-default:"false"`
}

// RoleSync структура для настройки воркера синхронизации ролей
type RoleSync struct {
	RoleSyncURL     string        `yaml:"url"`
	RoleSyncToken   string        `yaml:"token" env:"ROLE_SYNC_TOKEN"`
	RoleSyncTimeout time.Duration `yaml:"timeout" env-default:"5s"`
}

// MustLoad функция для загрузки конфига, путь к файлу берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"SlotsCacheTTL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  MaxRetries: %d\n"+
			"  RetryDelay: %s\n"+
			"Reconciler:\n"+
			"  Interval: %s\n"+
			"Auth:\n"+
			"  TokenTTL: %s\n"+
			"  Admins: %d\n"+
			"RateLimit:\n"+
			"  RPS: %.2f\n"+
			"  Burst: %d\n"+
			"  TrustProxy: %t\n"+
			"RoleSync:\n"+
			"  URL: %s\n"+
			"  Timeout: %s\n",
		c.Env,
		"***",
		c.MigrationsPath,
		c.SlotsCacheTTL,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQMaxRetries,
		c.RabbitMQRetryDelay,
		c.ReconcileInterval,
		c.TokenTTL,
		len(c.Admins),
		c.RPS,
		c.Burst,
		c.TrustProxy,
		c.RoleSyncURL,
		c.RoleSyncTimeout,
	)
}
