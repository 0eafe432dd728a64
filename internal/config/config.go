package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Gemini   GeminiConfig
	RabbitMQ RabbitMQConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    string
	UploadMaxBytes  int
	AccessLog       bool
}

// LogConfig selects level and handler format.
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig selects and tunes the credential store.
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds hashing and token settings.
type AuthConfig struct {
	BcryptCost int
	JWTSecret  string
	TokenTTL   time.Duration
	// Enforce requires a bearer token on the user-scoped routes.
	Enforce bool
}

// GeminiConfig configures the generative model client.
type GeminiConfig struct {
	APIKey           string
	ChatModel        string
	VisionModel      string
	StructuredOutput bool
}

// RabbitMQConfig configures account event publication.
type RabbitMQConfig struct {
	URL     string // empty disables event publication
	Queue   string
	Consume bool
}

var (
	ErrUnknownDriver     = errors.New("unknown database driver")
	ErrWeakJWTSecret     = errors.New("JWT_SECRET must be at least 32 bytes when AUTH_ENFORCE is set")
	ErrInvalidBcryptCost = errors.New("BCRYPT_COST out of range")
)

// Load reads configuration from an optional .env file and the process environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// Names used by older deployments.
	_ = v.BindEnv("DB_HOST", "DB_HOST", "host")
	_ = v.BindEnv("DB_USER", "DB_USER", "user")
	_ = v.BindEnv("DB_PASSWORD", "DB_PASSWORD", "password")
	_ = v.BindEnv("DB_NAME", "DB_NAME", "dbname")
	_ = v.BindEnv("DB_PORT", "DB_PORT", "port")
	_ = v.BindEnv("GEMINI_API_KEY", "GEMINI_API_KEY", "gemini_api")

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("HTTP_ACCESS_LOG", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "agribuddy")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_SQLITE_PATH", "agribuddy.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("AUTH_ENFORCE", false)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_CHAT_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_VISION_MODEL", "gemini-1.5-flash-latest")
	v.SetDefault("GEMINI_STRUCTURED_OUTPUT", true)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "user_events")
	v.SetDefault("RABBITMQ_CONSUME", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            normalizePort(v.GetString("APP_PORT")),
			Env:             v.GetString("APP_ENV"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			AllowOrigins:    v.GetString("CORS_ALLOW_ORIGINS"),
			UploadMaxBytes:  v.GetInt("UPLOAD_MAX_BYTES"),
			AccessLog:       v.GetBool("HTTP_ACCESS_LOG"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			SQLitePath:      v.GetString("DB_SQLITE_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			BcryptCost: v.GetInt("BCRYPT_COST"),
			JWTSecret:  v.GetString("JWT_SECRET"),
			TokenTTL:   v.GetDuration("JWT_TTL"),
			Enforce:    v.GetBool("AUTH_ENFORCE"),
		},
		Gemini: GeminiConfig{
			APIKey:           v.GetString("GEMINI_API_KEY"),
			ChatModel:        v.GetString("GEMINI_CHAT_MODEL"),
			VisionModel:      v.GetString("GEMINI_VISION_MODEL"),
			StructuredOutput: v.GetBool("GEMINI_STRUCTURED_OUTPUT"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:     v.GetString("RABBITMQ_URL"),
			Queue:   v.GetString("RABBITMQ_QUEUE"),
			Consume: v.GetBool("RABBITMQ_CONSUME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that cannot be expressed as defaults.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	// bcrypt.MinCost and bcrypt.MaxCost
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("%w: %d", ErrInvalidBcryptCost, c.Auth.BcryptCost)
	}
	if c.Auth.Enforce && len(c.Auth.JWTSecret) < 32 {
		return ErrWeakJWTSecret
	}
	return nil
}

// DSN returns the postgres connection URL. It contains the password and must not be logged.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted describes the target database without credentials.
func (d DatabaseConfig) Redacted() string {
	if d.Driver == DriverSQLite {
		return "sqlite:" + d.SQLitePath
	}
	return fmt.Sprintf("%s@%s:%s/%s", d.User, d.Host, d.Port, d.Name)
}

func normalizePort(p string) string {
	if p != "" && !strings.Contains(p, ":") {
		return ":" + p
	}
	return p
}
