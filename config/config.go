package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the exchange server
type Config struct {
	Server    ServerConfig
	Multicast MulticastConfig
	Engine    EngineConfig
	Logger    LoggerConfig
	Memory    MemoryConfig
	Database  DatabaseConfig
	Redis     RedisConfig
}

// ServerConfig holds the client-facing TCP listener and the control-plane
// HTTP listener. TCPPort, ControlPort and SocketTimeout are required:
// startup fails when they are missing or not integers.
type ServerConfig struct {
	TCPPort         int
	ControlPort     int
	SocketTimeout   time.Duration // per-connection inactivity timeout
	ShutdownTimeout time.Duration
}

// MulticastConfig holds the group endpoint for threshold alerts.
// Address and Port are required.
type MulticastConfig struct {
	Address string
	Port    int
}

// EngineConfig holds matching engine and persistence configuration
type EngineConfig struct {
	DataDir      string
	TradeLogPath string
	UsersPath    string
	NotifyBuffer int
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level string // DEBUG, INFO, WARN, ERROR
}

// MemoryConfig holds the in-memory recent-trade cache configuration
type MemoryConfig struct {
	Enabled   bool
	MaxTrades int
}

// DatabaseConfig holds the optional PostgreSQL trade archive configuration
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	MaxConns        int
	ConnMaxLifetime time.Duration
	SSLMode         string
}

// RedisConfig holds the optional Redis recent-trade cache configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	TLSEnabled   bool
	MaxTrades    int
}

// Load loads configuration from .env file (if exists) and environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	tcpPort, err := getRequiredInt("TCP_PORT")
	if err != nil {
		return nil, err
	}
	controlPort, err := getRequiredInt("CONTROL_PORT")
	if err != nil {
		return nil, err
	}
	socketTimeoutMS, err := getRequiredInt("SOCKET_TIMEOUT_MS")
	if err != nil {
		return nil, err
	}
	multicastPort, err := getRequiredInt("MULTICAST_PORT")
	if err != nil {
		return nil, err
	}
	multicastAddr := os.Getenv("MULTICAST_ADDRESS")
	if multicastAddr == "" {
		return nil, fmt.Errorf("MULTICAST_ADDRESS is required")
	}

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Server: ServerConfig{
			TCPPort:         tcpPort,
			ControlPort:     controlPort,
			SocketTimeout:   time.Duration(socketTimeoutMS) * time.Millisecond,
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Multicast: MulticastConfig{
			Address: multicastAddr,
			Port:    multicastPort,
		},
		Engine: EngineConfig{
			DataDir:      dataDir,
			TradeLogPath: getEnv("TRADE_LOG_PATH", dataDir+"/StoricoOrdini.json"),
			UsersPath:    getEnv("USERS_PATH", dataDir+"/users.json"),
			NotifyBuffer: getEnvInt("NOTIFY_BUFFER", 1024),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		Memory: MemoryConfig{
			Enabled:   getEnvBool("MEMORY_ENABLED", true),
			MaxTrades: getEnvInt("MEMORY_MAX_TRADES", 1000),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DATABASE_ENABLED", false),
			Host:            getEnv("DATABASE_HOST", "localhost"),
			Port:            getEnvInt("DATABASE_PORT", 5432),
			Name:            getEnv("DATABASE_NAME", "cross"),
			User:            getEnv("DATABASE_USER", "postgres"),
			Password:        getEnv("DATABASE_PASSWORD", ""),
			MaxConns:        getEnvInt("DATABASE_MAX_CONNECTIONS", 20),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			SSLMode:         getEnv("DATABASE_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			TLSEnabled:   getEnvBool("REDIS_TLS_ENABLED", false),
			MaxTrades:    getEnvInt("REDIS_MAX_TRADES", 10000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.TCPPort <= 0 || c.Server.TCPPort > 65535 {
		return fmt.Errorf("TCP_PORT must be in 1..65535")
	}
	if c.Server.ControlPort <= 0 || c.Server.ControlPort > 65535 {
		return fmt.Errorf("CONTROL_PORT must be in 1..65535")
	}
	if c.Server.TCPPort == c.Server.ControlPort {
		return fmt.Errorf("TCP_PORT and CONTROL_PORT must differ")
	}
	if c.Server.SocketTimeout <= 0 {
		return fmt.Errorf("SOCKET_TIMEOUT_MS must be > 0")
	}

	ip := net.ParseIP(c.Multicast.Address)
	if ip == nil || !ip.IsMulticast() {
		return fmt.Errorf("MULTICAST_ADDRESS %q is not a multicast address", c.Multicast.Address)
	}
	if c.Multicast.Port <= 0 || c.Multicast.Port > 65535 {
		return fmt.Errorf("MULTICAST_PORT must be in 1..65535")
	}

	if c.Engine.TradeLogPath == "" {
		return fmt.Errorf("TRADE_LOG_PATH cannot be empty")
	}
	if c.Engine.UsersPath == "" {
		return fmt.Errorf("USERS_PATH cannot be empty")
	}
	if c.Engine.NotifyBuffer < 1 {
		return fmt.Errorf("NOTIFY_BUFFER must be > 0")
	}

	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	return nil
}

// Helper functions to read environment variables

func getRequiredInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return intVal, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
