package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	JWTSigningKey  string
	JWTIssuer      string
	AdminTokenHash string
	TxTimeout      time.Duration

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Workers  WorkerConfig
	Limits   RateLimitConfig
}

// PostgresConfig selects the durable store. An empty URL keeps every store in memory.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// RedisConfig configures the domain event fan-out. An empty URL disables it.
type RedisConfig struct {
	URL           string
	ChannelPrefix string
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// KafkaConfig configures the outbox relay target. No brokers disables the relay.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// WorkerConfig tunes background loops. A zero interval disables the loop.
type WorkerConfig struct {
	ExpirySweepInterval time.Duration
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
}

// RateLimitConfig bounds requests per caller and window. Redis, when configured,
// shares the budget across replicas.
type RateLimitConfig struct {
	Disabled      bool
	ReadRequests  int
	WriteRequests int
	Window        time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           getenv("LIFECONNECT_ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      getenv("JWT_ISSUER", "lifeconnect"),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		TxTimeout:      getenvDuration("TX_TIMEOUT", 5*time.Second),
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getenvInt("DATABASE_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			URL:           os.Getenv("REDIS_URL"),
			ChannelPrefix: getenv("REDIS_CHANNEL_PREFIX", "lifeconnect:events"),
			PoolSize:      getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:   getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:   getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:    getenv("KAFKA_TOPIC", "lifeconnect.ledger.events"),
			ClientID: getenv("KAFKA_CLIENT_ID", "lifeconnect-ledger"),
		},
		Workers: WorkerConfig{
			ExpirySweepInterval: getenvDuration("EXPIRY_SWEEP_INTERVAL", 0),
			OutboxPollInterval:  getenvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			OutboxBatchSize:     getenvInt("OUTBOX_BATCH_SIZE", 100),
		},
		Limits: RateLimitConfig{
			Disabled:      os.Getenv("RATE_LIMIT_DISABLED") == "true",
			ReadRequests:  getenvInt("RATE_LIMIT_READ_REQUESTS", 600),
			WriteRequests: getenvInt("RATE_LIMIT_WRITE_REQUESTS", 120),
			Window:        getenvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
