package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Label    LabelConfig    `yaml:"label"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerMinute  int      `yaml:"rate_per_minute"`
	Burst          int      `yaml:"burst"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	ShipmentTopic      string   `yaml:"shipment_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type PricingConfig struct {
	WindowDays     int     `yaml:"window_days"`
	LoadingDelayMS int     `yaml:"loading_delay_ms"`
	CurrencySymbol string  `yaml:"currency_symbol"`
	Currency       string  `yaml:"currency"`
	ExpressPrice   float64 `yaml:"express_price"`
}

func (p PricingConfig) LoadingDelay() time.Duration {
	return time.Duration(p.LoadingDelayMS) * time.Millisecond
}

type BookingConfig struct {
	CancellationWindowMinutes int    `yaml:"cancellation_window_minutes"`
	CarrierName               string `yaml:"carrier_name"`
	SessionIdleMinutes        int    `yaml:"session_idle_minutes"`
	ReceiptTTLHours           int    `yaml:"receipt_ttl_hours"`
}

func (b BookingConfig) CancellationWindow() time.Duration {
	return time.Duration(b.CancellationWindowMinutes) * time.Minute
}

type PaymentConfig struct {
	StripeKey string `yaml:"stripe_key"`
}

type LabelConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Language       string `yaml:"language"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

type WorkerConfig struct {
	SweepMinutes int `yaml:"sweep_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.HTTP.RatePerMinute == 0 {
		c.HTTP.RatePerMinute = 200
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 50
	}
	if c.Pricing.WindowDays == 0 {
		c.Pricing.WindowDays = 21
	}
	if c.Pricing.LoadingDelayMS == 0 {
		c.Pricing.LoadingDelayMS = 300
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "sek"
	}
	if c.Pricing.CurrencySymbol == "" {
		c.Pricing.CurrencySymbol = "kr"
	}
	if c.Pricing.ExpressPrice == 0 {
		c.Pricing.ExpressPrice = 19.99
	}
	if c.Booking.CancellationWindowMinutes == 0 {
		c.Booking.CancellationWindowMinutes = 60
	}
	if c.Booking.CarrierName == "" {
		c.Booking.CarrierName = "PostNord"
	}
	if c.Booking.SessionIdleMinutes == 0 {
		c.Booking.SessionIdleMinutes = 30
	}
	if c.Booking.ReceiptTTLHours == 0 {
		c.Booking.ReceiptTTLHours = 24
	}
	if c.Label.TimeoutSeconds == 0 {
		c.Label.TimeoutSeconds = 10
	}
	if c.Label.Language == "" {
		c.Label.Language = "en"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Worker.SweepMinutes == 0 {
		c.Worker.SweepMinutes = 1
	}
}

func (c *Config) Validate() error {
	if c.Pricing.WindowDays < 0 {
		return fmt.Errorf("pricing.window_days must not be negative")
	}
	if c.Pricing.ExpressPrice < 0 {
		return fmt.Errorf("pricing.express_price must not be negative")
	}
	if c.Booking.CancellationWindowMinutes < 0 {
		return fmt.Errorf("booking.cancellation_window_minutes must not be negative")
	}
	return nil
}
