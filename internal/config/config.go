package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Sika"`
		Site string `envconfig:"APP_SITE" default:"gh"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"sika"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// HMAC secret for operator JWTs.
		Secret string `envconfig:"AUTH_SECRET"`
	}

	Invoice struct {
		// How long a BTC invoice stays payable before late payments
		// are routed to merchant review.
		Timeout time.Duration `envconfig:"INVOICE_TIMEOUT" default:"15m"`
	}

	Processors struct {
		Default     string `envconfig:"PROCESSOR_DEFAULT" default:"gocoin"`
		CallbackURL string `envconfig:"PROCESSOR_CALLBACK_URL"`

		GoCoin struct {
			BaseURL string `envconfig:"GOCOIN_BASE_URL" default:"https://api.gocoin.com/api/v1"`
			Token   string `envconfig:"GOCOIN_TOKEN"`
			Secret  string `envconfig:"GOCOIN_SECRET"`
		}

		Blockchain struct {
			BaseURL string `envconfig:"BLOCKCHAIN_BASE_URL" default:"https://blockchain.info"`
			XPub    string `envconfig:"BLOCKCHAIN_XPUB"`
			Key     string `envconfig:"BLOCKCHAIN_KEY"`
			Secret  string `envconfig:"BLOCKCHAIN_SECRET"`
		}

		Coinapult struct {
			BaseURL string `envconfig:"COINAPULT_BASE_URL" default:"https://api.coinapult.com/api"`
			Key     string `envconfig:"COINAPULT_KEY"`
			Secret  string `envconfig:"COINAPULT_SECRET"`
		}
	}

	Mail struct {
		BaseURL string `envconfig:"MAIL_BASE_URL"`
		Token   string `envconfig:"MAIL_TOKEN"`
		From    string `envconfig:"MAIL_FROM" default:"support@sika.africa"`
	}

	Admission struct {
		// Geo/Tor lookup service. Empty disables admission checks.
		BaseURL string `envconfig:"ADMISSION_BASE_URL"`
		Token   string `envconfig:"ADMISSION_TOKEN"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
