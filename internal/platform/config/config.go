package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/platform/secret"
	pstrings "newsletter/pkg/platform/strings"
)

// DefaultPath is where LoadFromEnv looks when APP_CONFIG_PATH is unset.
const DefaultPath = "configuration.yaml"

// Settings is the full application configuration.
type Settings struct {
	Application ApplicationSettings `yaml:"application"`
	Database    DatabaseSettings    `yaml:"database"`
	EmailClient EmailClientSettings `yaml:"email_client"`
	Log         LogSettings         `yaml:"log"`
	Kafka       KafkaSettings       `yaml:"kafka"`
}

// ApplicationSettings captures HTTP server level configuration.
type ApplicationSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// BaseURL is the public origin used to build confirmation links.
	BaseURL            string   `yaml:"base_url"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Addr returns host:port for the listener.
func (a ApplicationSettings) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// DatabaseSettings are the settings needed to reach Postgres.
type DatabaseSettings struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Username     string        `yaml:"username"`
	Password     secret.String `yaml:"password"`
	DatabaseName string        `yaml:"database_name"`
	RequireSSL   bool          `yaml:"require_ssl"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

// ConnectionString targets DatabaseName.
func (d DatabaseSettings) ConnectionString() secret.String {
	return secret.New(d.url(d.DatabaseName))
}

// InstanceConnectionString targets the server's maintenance database, for work
// that is not tied to DatabaseName such as creating it.
func (d DatabaseSettings) InstanceConnectionString() secret.String {
	return secret.New(d.url("postgres"))
}

func (d DatabaseSettings) url(database string) string {
	sslMode := "disable"
	if d.RequireSSL {
		sslMode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password.Expose()),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

// EmailClientSettings configure the mail provider client.
type EmailClientSettings struct {
	BaseURL             string        `yaml:"base_url"`
	SenderEmail         string        `yaml:"sender_email"`
	AuthorizationToken  secret.String `yaml:"authorization_token"`
	TimeoutMilliseconds int           `yaml:"timeout_milliseconds"`
}

// Sender parses the configured sender address.
func (e EmailClientSettings) Sender() (models.SubscriberEmail, error) {
	return models.ParseSubscriberEmail(e.SenderEmail)
}

func (e EmailClientSettings) Timeout() time.Duration {
	return time.Duration(e.TimeoutMilliseconds) * time.Millisecond
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// KafkaSettings enable the outbox relay when Brokers is non-empty.
type KafkaSettings struct {
	Brokers        []string `yaml:"brokers"`
	Topic          string   `yaml:"topic"`
	PollIntervalMS int      `yaml:"poll_interval_ms"`
	BatchSize      int      `yaml:"batch_size"`
}

func (k KafkaSettings) Enabled() bool {
	return len(k.Brokers) > 0
}

func (k KafkaSettings) PollInterval() time.Duration {
	return time.Duration(k.PollIntervalMS) * time.Millisecond
}

// Load reads YAML settings from path and applies defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	cfg.Application.CORSAllowedOrigins = pstrings.DedupeAndTrim(cfg.Application.CORSAllowedOrigins)
	return &cfg, nil
}

// LoadFromEnv loads .env (if present), then the YAML file, then applies
// APP_* environment overrides.
func LoadFromEnv() (*Settings, error) {
	_ = godotenv.Load()

	path := os.Getenv("APP_CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Settings) applyDefaults() {
	if s.Application.Host == "" {
		s.Application.Host = "127.0.0.1"
	}
	if s.Application.Port == 0 {
		s.Application.Port = 8000
	}
	if s.Database.Port == 0 {
		s.Database.Port = 5432
	}
	if s.EmailClient.TimeoutMilliseconds == 0 {
		s.EmailClient.TimeoutMilliseconds = 10000
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "json"
	}
	if s.Kafka.Topic == "" {
		s.Kafka.Topic = "newsletter.subscriptions"
	}
	if s.Kafka.PollIntervalMS == 0 {
		s.Kafka.PollIntervalMS = 1000
	}
	if s.Kafka.BatchSize == 0 {
		s.Kafka.BatchSize = 50
	}
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("APP_APPLICATION__HOST", &s.Application.Host)
	str("APP_APPLICATION__BASE_URL", &s.Application.BaseURL)
	str("APP_DATABASE__HOST", &s.Database.Host)
	str("APP_DATABASE__USERNAME", &s.Database.Username)
	str("APP_DATABASE__DATABASE_NAME", &s.Database.DatabaseName)
	str("APP_EMAIL_CLIENT__BASE_URL", &s.EmailClient.BaseURL)
	str("APP_EMAIL_CLIENT__SENDER_EMAIL", &s.EmailClient.SenderEmail)
	str("APP_LOG__LEVEL", &s.Log.Level)
	str("APP_LOG__FORMAT", &s.Log.Format)
	str("APP_KAFKA__TOPIC", &s.Kafka.Topic)

	if v := getenv("APP_DATABASE__PASSWORD"); v != "" {
		s.Database.Password = secret.New(v)
	}
	if v := getenv("APP_EMAIL_CLIENT__AUTHORIZATION_TOKEN"); v != "" {
		s.EmailClient.AuthorizationToken = secret.New(v)
	}
	if v := getenv("APP_DATABASE__REQUIRE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("APP_DATABASE__REQUIRE_SSL: %w", err)
		}
		s.Database.RequireSSL = b
	}
	if v := getenv("APP_KAFKA__BROKERS"); v != "" {
		s.Kafka.Brokers = pstrings.SplitList(v)
	}
	if v := getenv("APP_APPLICATION__CORS_ALLOWED_ORIGINS"); v != "" {
		s.Application.CORSAllowedOrigins = pstrings.SplitList(v)
	}

	return errors.Join(
		num("APP_APPLICATION__PORT", &s.Application.Port),
		num("APP_DATABASE__PORT", &s.Database.Port),
		num("APP_EMAIL_CLIENT__TIMEOUT_MILLISECONDS", &s.EmailClient.TimeoutMilliseconds),
	)
}

// Validate rejects settings the service cannot start with.
func (s *Settings) Validate() error {
	var errs []error
	if s.Application.BaseURL == "" {
		errs = append(errs, errors.New("application.base_url is required"))
	} else if u, err := url.Parse(s.Application.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("application.base_url %q is not an absolute URL", s.Application.BaseURL))
	}
	if s.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if s.Database.DatabaseName == "" {
		errs = append(errs, errors.New("database.database_name is required"))
	}
	if s.EmailClient.BaseURL == "" {
		errs = append(errs, errors.New("email_client.base_url is required"))
	}
	if _, err := s.EmailClient.Sender(); err != nil {
		errs = append(errs, fmt.Errorf("email_client.sender_email: %w", err))
	}
	if s.EmailClient.AuthorizationToken.IsEmpty() {
		errs = append(errs, errors.New("email_client.authorization_token is required"))
	}
	if s.EmailClient.TimeoutMilliseconds <= 0 {
		errs = append(errs, errors.New("email_client.timeout_milliseconds must be positive"))
	}
	if s.Kafka.Enabled() && s.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}
