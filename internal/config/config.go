package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the swick ordering core
type Config struct {
	API      APIConfig      `yaml:"api"`
	Payment  PaymentConfig  `yaml:"payment"`
	Tips     TipsConfig     `yaml:"tips"`
	Session  SessionConfig  `yaml:"session"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// APIConfig points at the remote order gateway
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PaymentConfig configures the payment gateway adapter and the minimum charge
type PaymentConfig struct {
	GatewayURL string          `yaml:"gateway_url"`
	APIKey     string          `yaml:"api_key"`
	Currency   string          `yaml:"currency"`
	MinCharge  decimal.Decimal `yaml:"min_charge"`
}

// TipsConfig holds the preset tip tier percentages
type TipsConfig struct {
	Low  int `yaml:"low"`
	Mid  int `yaml:"mid"`
	High int `yaml:"high"`
}

// SessionConfig selects the app variant and credential profile
type SessionConfig struct {
	Role    string `yaml:"role"`
	Profile string `yaml:"profile"`
}

// HTTPConfig configures the local quote service
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange"`
}

// Default returns the configuration used when no file overrides a value
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Payment: PaymentConfig{
			Currency:  "usd",
			MinCharge: decimal.RequireFromString("0.50"),
		},
		Tips:    TipsConfig{Low: 10, Mid: 15, High: 20},
		Session: SessionConfig{Role: "customer", Profile: "default"},
		HTTP:    HTTPConfig{Port: 3000},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "swick",
			Database: "swick",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Exchange: "swick_events",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults, then applies
// SWICK_* environment overrides. A missing file is not an error; a .env file in the
// working directory is loaded first when present.
func Load(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	if filename != "" {
		content, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		default:
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides values from the environment
func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("SWICK_API_BASE_URL", &c.API.BaseURL)
	setString("SWICK_PAYMENT_GATEWAY_URL", &c.Payment.GatewayURL)
	setString("SWICK_PAYMENT_API_KEY", &c.Payment.APIKey)
	setString("SWICK_ROLE", &c.Session.Role)
	setString("SWICK_PROFILE", &c.Session.Profile)
	setString("SWICK_DB_HOST", &c.Database.Host)
	setString("SWICK_DB_USER", &c.Database.User)
	setString("SWICK_DB_PASSWORD", &c.Database.Password)
	setString("SWICK_DB_NAME", &c.Database.Database)
	setString("SWICK_RABBITMQ_HOST", &c.RabbitMQ.Host)
	setString("SWICK_RABBITMQ_USER", &c.RabbitMQ.User)
	setString("SWICK_RABBITMQ_PASSWORD", &c.RabbitMQ.Password)

	if err := setInt("SWICK_HTTP_PORT", &c.HTTP.Port); err != nil {
		return err
	}
	if err := setInt("SWICK_DB_PORT", &c.Database.Port); err != nil {
		return err
	}
	if err := setInt("SWICK_RABBITMQ_PORT", &c.RabbitMQ.Port); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("SWICK_MIN_CHARGE"); ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid SWICK_MIN_CHARGE value: %w", err)
		}
		c.Payment.MinCharge = d
	}
	return nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	switch c.Session.Role {
	case "customer", "server":
	default:
		return fmt.Errorf("session.role must be one of: customer, server")
	}
	if c.Payment.MinCharge.IsNegative() {
		return fmt.Errorf("payment.min_charge must not be negative")
	}
	for name, pct := range map[string]int{"low": c.Tips.Low, "mid": c.Tips.Mid, "high": c.Tips.High} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("tips.%s must be between 0 and 100", name)
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
