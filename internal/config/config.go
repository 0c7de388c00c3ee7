package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Token    TokenConfig
	Event    EventConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver       string // "sqlite" or "postgres"
	Path         string // sqlite file path
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	TokenTransfers  string
	TicketPurchased string
	TicketRedeemed  string
	DepositReceived string
}

type TokenConfig struct {
	ServiceURL      string
	ContractAddress string // custodial address of this ledger at the token service
	Decimals        int
	CallbackSecret  string // shared secret the token service presents on callbacks
}

type EventConfig struct {
	OwnerAddress string
	JWTSecret    string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			Path:         getEnv("DB_PATH", "ticket-ledger.db"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "ledger_user"),
			Password:     getEnv("DB_PASSWORD", "ledger_pass"),
			Database:     getEnv("DB_NAME", "ticket_ledger"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID: getEnv("KAFKA_GROUP_ID", "ticket-ledger-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				TokenTransfers:  getEnv("KAFKA_TOPIC_TRANSFERS", "token-transfers"),
				TicketPurchased: getEnv("KAFKA_TOPIC_PURCHASED", "ticket-purchased"),
				TicketRedeemed:  getEnv("KAFKA_TOPIC_REDEEMED", "ticket-redeemed"),
				DepositReceived: getEnv("KAFKA_TOPIC_DEPOSIT", "deposit-received"),
			},
		},
		Token: TokenConfig{
			ServiceURL:      getEnv("TOKEN_SERVICE_URL", "http://localhost:9090"),
			ContractAddress: getEnv("TOKEN_CONTRACT_ADDRESS", ""),
			Decimals:        getEnvInt("TOKEN_DECIMALS", 8),
			CallbackSecret:  getEnv("TOKEN_CALLBACK_SECRET", ""),
		},
		Event: EventConfig{
			OwnerAddress: getEnv("EVENT_OWNER_ADDRESS", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
