package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration for the API server.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"maths-quiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Topics   Topics
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and admin auth.
// An empty AdminPasswordHash leaves topic writes open.
type Security struct {
	JWTSecret         string        `env:"JWT_SECRET,notEmpty"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH" envDefault:""`
	TokenTTL          time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	MaxLoginFailures  int           `env:"ADMIN_MAX_LOGIN_FAILURES" envDefault:"5"`
	LoginLockout      time.Duration `env:"ADMIN_LOGIN_LOCKOUT" envDefault:"15m"`
}

// Topics governs seeding, caching and the live feed.
type Topics struct {
	CacheTTL       time.Duration `env:"TOPIC_CACHE_TTL" envDefault:"5m"`
	WarmInterval   time.Duration `env:"TOPIC_WARM_INTERVAL" envDefault:"4m"`
	DisableSeed    bool          `env:"TOPIC_DISABLE_SEED" envDefault:"false"`
	ChangesChannel string        `env:"TOPIC_CHANGES_CHANNEL" envDefault:"topics:changed"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
