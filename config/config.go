package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port          string `env:"PORT" env-default:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`

	MongoURI string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" env-default:"tradedesk"`

	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	JWTSecret   string `env:"JWT_SECRET"`
	TokenPepper string `env:"TOKEN_PEPPER"`

	DefaultCurrency string `env:"DEFAULT_CURRENCY" env-default:"USD"`

	Blob struct {
		Driver            string `env:"BLOB_DRIVER" env-default:"local"`
		LocalDir          string `env:"BLOB_LOCAL_DIR" env-default:"static/uploads"`
		PublicURL         string `env:"BLOB_PUBLIC_URL" env-default:"http://localhost:8080/static/uploads"`
		Bucket            string `env:"BLOB_BUCKET"`
		S3Region          string `env:"S3_REGION" env-default:"us-west-2"`
		GCSCredentials    string `env:"GCS_CREDENTIALS_FILE"`
		ShipmentBucket    string `env:"BLOB_SHIPMENT_BUCKET" env-default:"shipment_updates"`
		PaymentBucket     string `env:"BLOB_PAYMENT_BUCKET" env-default:"payment-proofs"`
		UploadParallelism int    `env:"BLOB_UPLOAD_PARALLELISM" env-default:"4"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
		Topic   string   `env:"KAFKA_TOPIC" env-default:"tradedesk.events"`
	}

	SMTP struct {
		Host     string `env:"SMTP_HOST"`
		Port     int    `env:"SMTP_PORT" env-default:"587"`
		Username string `env:"SMTP_USERNAME"`
		Password string `env:"SMTP_PASSWORD"`
		From     string `env:"SMTP_FROM" env-default:"no-reply@tradedesk.local"`
	}

	MagicLinkTTL     time.Duration `env:"MAGIC_LINK_TTL" env-default:"72h"`
	MagicLinkMaxUses int           `env:"MAGIC_LINK_MAX_USES" env-default:"5"`
}

var validBlobDrivers = []string{"local", "s3", "gcs"}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Port != "" && c.Port[0] != ':' {
		c.Port = ":" + c.Port
	}
	c.Blob.Driver = strings.ToLower(strings.TrimSpace(c.Blob.Driver))
	c.DefaultCurrency = strings.ToUpper(c.DefaultCurrency)
	if c.TokenPepper == "" {
		c.TokenPepper = c.JWTSecret
	}
	if c.Blob.UploadParallelism <= 0 {
		c.Blob.UploadParallelism = 4
	}
	brokers := c.Kafka.Brokers[:0]
	for _, b := range c.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Kafka.Brokers = brokers
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	known := false
	for _, d := range validBlobDrivers {
		if c.Blob.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.Blob.Driver)
	}
	if c.Blob.Driver != "local" && c.Blob.Bucket == "" {
		return fmt.Errorf("BLOB_BUCKET is required for the %s driver", c.Blob.Driver)
	}
	if c.MagicLinkMaxUses < 0 {
		return errors.New("MAGIC_LINK_MAX_USES must not be negative")
	}
	return nil
}

// KafkaEnabled reports whether domain events should also go to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// SMTPEnabled reports whether magic links can be emailed.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}
