package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Postgres     PostgresConfig     `envPrefix:"POSTGRES_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	RabbitMQ     RabbitMQConfig     `envPrefix:"RABBITMQ_"`
	SMTP         SMTPConfig         `envPrefix:"SMTP_"`
	Logger       LoggerConfig       `envPrefix:"LOG_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	Notification NotificationConfig `envPrefix:"NOTIFY_"`
	Assignment   AssignmentConfig   `envPrefix:"ASSIGNMENT_"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"NAME" envDefault:"staff-assignment-service"`
	Env                   string `env:"ENV" envDefault:"development"`
	Host                  string `env:"HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"PORT" envDefault:"8080"`
	Version               string `env:"VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"DSN"`
	MaxConns       int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir  string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ConnMaxIdleSec int32  `env:"CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// RabbitMQConfig holds broker values. An empty DSN disables publishing.
type RabbitMQConfig struct {
	DSN                   string `env:"DSN"`
	Queue                 string `env:"QUEUE" envDefault:"notification_queue"`
	PublishTimeoutSeconds int    `env:"PUBLISH_TIMEOUT_SECONDS" envDefault:"10"`
}

// SMTPConfig configures the mailer.
type SMTPConfig struct {
	Host               string `env:"HOST"`
	Port               int    `env:"PORT" envDefault:"465"`
	Username           string `env:"USERNAME"`
	Password           string `env:"PASSWORD"`
	DialTimeoutSeconds int    `env:"DIAL_TIMEOUT_SECONDS" envDefault:"10"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string `env:"JWT_SECRET" envDefault:"dev-secret"`
	AccessTokenTTLMinutes   int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	PasswordResetTTLMinutes int    `env:"PASSWORD_RESET_TTL_MINUTES" envDefault:"30"`
	BcryptCost              int    `env:"BCRYPT_COST" envDefault:"12"`
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"noreply@example.com"`
	ResetURLBase string `env:"RESET_URL_BASE" envDefault:"http://localhost:3000/reset-password"`
}

// AssignmentConfig tunes staff matching.
type AssignmentConfig struct {
	// Ranking is a comma separated list of ranking keys, used when PolicyFile is empty.
	Ranking         string `env:"RANKING" envDefault:"least_assigned,id"`
	PolicyFile      string `env:"POLICY_FILE"`
	CandidateLimit  int    `env:"CANDIDATE_LIMIT" envDefault:"500"`
	RosterCacheSecs int    `env:"ROSTER_CACHE_SECONDS" envDefault:"60"`
}

// Load reads configuration from an optional .env file and the environment,
// applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// first error keeps the log line readable
			return nil, fmt.Errorf("config: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RosterCacheTTL returns how long candidate rosters stay cached; zero disables caching.
func (a AssignmentConfig) RosterCacheTTL() time.Duration {
	if a.RosterCacheSecs <= 0 {
		return 0
	}
	return time.Duration(a.RosterCacheSecs) * time.Second
}

// PublishTimeout bounds a single broker publish.
func (r RabbitMQConfig) PublishTimeout() time.Duration {
	if r.PublishTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.PublishTimeoutSeconds) * time.Second
}
