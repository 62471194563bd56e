package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Client configures the quiz CLI. Command-line flags override these values.
type Client struct {
	APIBaseURL     string        `env:"MATHSQUIZ_API" envDefault:"http://localhost:8080"`
	DBPath         string        `env:"MATHSQUIZ_DB"`
	Timezone       string        `env:"MATHSQUIZ_TZ" envDefault:"UTC"`
	RequestTimeout time.Duration `env:"MATHSQUIZ_TIMEOUT" envDefault:"10s"`
	AdminToken     string        `env:"MATHSQUIZ_ADMIN_TOKEN"`

	// RedisAddr moves progress from the local file to a shared Redis, keyed by ClientID.
	RedisAddr string `env:"MATHSQUIZ_REDIS_ADDR"`
	RedisDB   int    `env:"MATHSQUIZ_REDIS_DB" envDefault:"0"`
	// ClientID picks the Redis namespace. Empty uses the id kept in the local file.
	ClientID string `env:"MATHSQUIZ_CLIENT_ID"`
}

// Location resolves Timezone, which decides where streak days begin.
func (c Client) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "UTC" {
		return time.UTC, nil
	}
	if c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadClient parses environment variables into Client config.
func LoadClient() (*Client, error) {
	cfg := &Client{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}
	return cfg, nil
}
