package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	NotifierLog      = "log"
	NotifierSMTP     = "smtp"
	NotifierRabbitMQ = "rabbitmq"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr          string
	CORSAllowedOrigin string
	//Auth / Security
	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	// OTP flows (email verify / password reset)
	VerifyOTPTTL time.Duration
	ResetOTPTTL  time.Duration

	// Infrastructure
	DBAddr        string
	DBAutoMigrate bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Outgoing mail
	Notifier    string
	SenderEmail string
	SMTP        SMTPConfig
	Rabbit      RabbitConfig

	// Rate limits per minute; 0 disables
	LoginLimit    int
	RegisterLimit int
	OTPLimit      int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type RabbitConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// SecureCookies reports whether cookies must be Secure with SameSite=None.
func (c *Config) SecureCookies() bool { return c.Env == "prod" }

// UseMemoryStore is true in dev when no database is configured.
func (c *Config) UseMemoryStore() bool { return c.DBAddr == "" && c.Env == "dev" }

// loadDotEnv reads .env when present; real environment variables win.
func loadDotEnv() error {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:               getEnv("ENV", "dev"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":4000"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		Notifier:          strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
	}
	switch cfg.Env {
	case "dev", "staging", "prod":
	default:
		return nil, fmt.Errorf("invalid ENV %q: want dev, staging or prod", cfg.Env)
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes in prod")
	}

	cfg.SenderEmail = os.Getenv("SENDER_EMAIL")
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("missing required env var: SENDER_EMAIL")
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.VerifyOTPTTL, err = getDuration("VERIFY_OTP_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ResetOTPTTL, err = getDuration("RESET_OTP_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost)
	}

	// The memory store is only allowed in dev; everywhere else the database is required.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" && cfg.Env != "dev" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if cfg.DBAddr != "" {
		if err := validatePostgresDSN(cfg.DBAddr); err != nil {
			return nil, fmt.Errorf("invalid DB_ADDR: %w", err)
		}
	}
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", false); err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cfg.SMTP, err = loadSMTP(); err != nil {
		return nil, err
	}
	if cfg.Rabbit, err = loadRabbit(); err != nil {
		return nil, err
	}
	switch cfg.Notifier {
	case NotifierLog:
	case NotifierSMTP:
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("missing required env var: SMTP_HOST (NOTIFIER=smtp)")
		}
	case NotifierRabbitMQ:
		if cfg.Rabbit.URL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL (NOTIFIER=rabbitmq)")
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFIER %q: want log, smtp or rabbitmq", cfg.Notifier)
	}

	if cfg.LoginLimit, err = getInt("RL_LOGIN_PER_MIN", 10); err != nil {
		return nil, err
	}
	if cfg.RegisterLimit, err = getInt("RL_REGISTER_PER_MIN", 5); err != nil {
		return nil, err
	}
	if cfg.OTPLimit, err = getInt("RL_OTP_PER_MIN", 5); err != nil {
		return nil, err
	}

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MailerConfig is what cmd/mailer needs: the queue to drain and the SMTP relay.
type MailerConfig struct {
	Env         string
	SenderEmail string
	Rabbit      RabbitConfig
	SMTP        SMTPConfig
}

func LoadMailer() (*MailerConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &MailerConfig{
		Env:         getEnv("ENV", "dev"),
		SenderEmail: os.Getenv("SENDER_EMAIL"),
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("missing required env var: SENDER_EMAIL")
	}
	var err error
	if cfg.Rabbit, err = loadRabbit(); err != nil {
		return nil, err
	}
	if cfg.Rabbit.URL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}
	if cfg.SMTP, err = loadSMTP(); err != nil {
		return nil, err
	}
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("missing required env var: SMTP_HOST")
	}
	return cfg, nil
}

func loadSMTP() (SMTPConfig, error) {
	port, err := getInt("SMTP_PORT", 587)
	if err != nil {
		return SMTPConfig{}, err
	}
	return SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}, nil
}

func loadRabbit() (RabbitConfig, error) {
	prefetch, err := getInt("RABBIT_PREFETCH", 10)
	if err != nil {
		return RabbitConfig{}, err
	}
	return RabbitConfig{
		URL:      os.Getenv("RABBIT_URL"),
		Exchange: getEnv("RABBIT_EXCHANGE", "auth.events"),
		Queue:    getEnv("RABBIT_QUEUE", "auth.mail.queue"),
		Prefetch: prefetch,
	}, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("scheme must be postgres or postgresql, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("missing database name")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration for %s: %q must be positive", key, v)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
