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

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// SpamThreshold — сколько подряд сообщений без ответа агента форвардится (T из политики анти-спама).
	SpamThreshold int
	// CommissionBase — базовая сумма начисления за закрытый тикет (earning = base * rate).
	CommissionBase float64
	// StaleAfter — через сколько открытый тикет помечается «залежавшимся» в списках.
	StaleAfter time.Duration
	// IssueChoiceTTL — время жизни незавершённого выбора "new issue / related".
	IssueChoiceTTL time.Duration

	AdminIDs []int64

	KafkaBrokers     []string
	KafkaTopicTicket string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:          getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:         firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SpamThreshold:    getEnvInt("SPAM_THRESHOLD", 5),
		CommissionBase:   getEnvFloat("COMMISSION_BASE", 1.0),
		StaleAfter:       time.Duration(getEnvInt("TICKET_STALE_HOURS", 24)) * time.Hour,
		IssueChoiceTTL:   time.Duration(getEnvInt("ISSUE_CHOICE_TTL_MINUTES", 15)) * time.Minute,
		AdminIDs:         parseIDs(getEnv("ADMIN_IDS", "")),
		KafkaBrokers:     parseList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket: getEnv("KAFKA_TOPIC_TICKET", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "support_engine")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("config: DB_HOST and DB_DATABASE are required")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.SpamThreshold < 1 {
		return errors.New("config: SPAM_THRESHOLD must be >= 1")
	}
	if c.CommissionBase < 0 {
		return errors.New("config: COMMISSION_BASE must be >= 0")
	}
	return nil
}

// IsAdmin — входит ли идентификатор в список привилегированных акторов.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseIDs(s string) []int64 {
	var out []int64
	for _, t := range parseList(s) {
		if id, err := strconv.ParseInt(t, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
