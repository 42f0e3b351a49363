package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr         string
	ShareBaseURL string
	DatabaseURL  string
	JWTSecret    string
	JWTIssuer    string

	Redis  RedisConfig
	Kafka  KafkaConfig
	Notify NotifyConfig
	Log    LogConfig
}

// RedisConfig configures the card cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	CacheTTL     time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the notification sink. No brokers means events are
// only logged.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	ClientID    string
	Partitions  int32
	Replication int16
}

// NotifyConfig tunes the async publisher.
type NotifyConfig struct {
	BufferSize       int
	RetryAttempts    int
	RetryBackoff     time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	ShutdownTimeout  time.Duration
}

type LogConfig struct {
	Format string
	Level  string
}

// Enabled reports whether a Redis URL was configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// Enabled reports whether any Kafka broker was configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	e := envReader{lookup: os.Getenv}
	cfg := Server{
		Addr:         e.str("CARDSHARE_ADDR", ":3001"),
		ShareBaseURL: e.str("SHARE_BASE_URL", "http://localhost:3001/flashcards/share"),
		DatabaseURL:  e.str("DB_URL", ""),
		JWTSecret:    e.str("JWT_SECRET", ""),
		JWTIssuer:    e.str("JWT_ISSUER", ""),
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			CacheTTL:     e.duration("REDIS_CACHE_TTL", 5*time.Minute),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     e.list("KAFKA_BROKERS"),
			TopicPrefix: e.str("KAFKA_TOPIC_PREFIX", ""),
			ClientID:    e.str("KAFKA_CLIENT_ID", "cardshare"),
			Partitions:  int32(e.integer("KAFKA_TOPIC_PARTITIONS", 1)),
			Replication: int16(e.integer("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Notify: NotifyConfig{
			BufferSize:       e.integer("NOTIFY_BUFFER_SIZE", 1024),
			RetryAttempts:    e.integer("NOTIFY_RETRY_ATTEMPTS", 3),
			RetryBackoff:     e.duration("NOTIFY_RETRY_BACKOFF", 200*time.Millisecond),
			BreakerThreshold: e.integer("NOTIFY_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  e.duration("NOTIFY_BREAKER_COOLDOWN", 30*time.Second),
			ShutdownTimeout:  e.duration("NOTIFY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Format: strings.ToLower(e.str("LOG_FORMAT", "json")),
			Level:  strings.ToLower(e.str("LOG_LEVEL", "info")),
		},
	}
	if e.err != nil {
		return Server{}, e.err
	}
	if cfg.Notify.BufferSize <= 0 {
		return Server{}, fmt.Errorf("NOTIFY_BUFFER_SIZE must be positive, got %d", cfg.Notify.BufferSize)
	}
	return cfg, nil
}

// envReader records the first parse failure so FromEnv reports it once.
type envReader struct {
	lookup func(string) string
	err    error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.lookup(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(e.lookup(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.lookup(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) list(key string) []string {
	var out []string
	for part := range strings.SplitSeq(e.lookup(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
