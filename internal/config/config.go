package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"` // development, production, test
	} `yaml:"server"`

	Database struct {
		DSN             string `yaml:"url"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
		AutoMigrate     bool   `yaml:"auto_migrate"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`

	Redis struct {
		Addr         string `yaml:"addr"` // пусто - кеш отключен
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		PlanCacheTTL int    `yaml:"plan_cache_ttl_seconds"`
	} `yaml:"redis"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"` // пусто - письма не отправляются
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	App struct {
		ReferralBaseURL string   `yaml:"referral_base_url"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"app"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

var AppConfig *Config

// PlanCacheTTL возвращает TTL кеша планов.
func (c *Config) PlanCacheTTL() time.Duration {
	return time.Duration(c.Redis.PlanCacheTTL) * time.Second
}

// IsDevelopment сообщает, включен ли режим разработки.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// LoadConfig читает .env, затем YAML-файл (если он есть) и накладывает
// переменные окружения поверх.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := defaults()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	f, err := os.Open(configPath)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults and environment", configPath)
	default:
		return nil, fmt.Errorf("failed to open config file at %s: %w", configPath, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

func defaults() *Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8000
	cfg.Server.Env = "development"
	cfg.Database.MaxOpenConns = 25
	cfg.Database.MaxIdleConns = 5
	cfg.Database.ConnMaxLifetime = 30
	cfg.Database.AutoMigrate = true
	cfg.JWT.TTL = 60
	cfg.JWT.Issuer = "scale"
	cfg.Redis.PlanCacheTTL = 300
	cfg.Email.SMTPPort = 587
	cfg.Email.FromName = "Scale"
	cfg.App.ReferralBaseURL = "https://app.scale.com"
	cfg.App.AllowedOrigins = []string{"*"}
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("Ignoring invalid SERVER_PORT=%q", v)
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Email.SMTPPassword = v
	}
	if v := os.Getenv("REFERRAL_BASE_URL"); v != "" {
		cfg.App.ReferralBaseURL = v
	}
	if v := os.Getenv("FIRST_ADMIN_EMAIL"); v != "" {
		cfg.FirstAdminEmail = v
	}
	if v := os.Getenv("FIRST_ADMIN_PASSWORD"); v != "" {
		cfg.FirstAdminPassword = v
	}
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database url is required (database.url or DATABASE_URL)")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// ForTesting возвращает конфигурацию с дефолтами для тестов.
func ForTesting() *Config {
	cfg := defaults()
	cfg.Server.Env = "test"
	cfg.Database.DSN = "file::memory:"
	cfg.JWT.Secret = "test_secret_key_for_scale_backend"
	return cfg
}
