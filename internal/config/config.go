package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// Store and session backends
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMongo  = "mongo"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds all configuration values
type Config struct {
	// Discord configuration
	DiscordToken        string `json:"-"`
	DiscordGuildID      string `json:"discord_guild_id"`
	RestrictRoleCommand bool   `json:"restrict_role_command"`

	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// Storage configuration
	StoreDriver   string `json:"store_driver"`
	DatabasePath  string `json:"database_path"`
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Collection names
	DocumentsCollection   string `json:"mongo_documents_collection"`
	GuildConfigCollection string `json:"mongo_guild_config_collection"`

	// Session configuration
	SessionBackend string        `json:"session_backend"`
	SessionTTL     time.Duration `json:"session_ttl"`

	// Redis configuration
	RedisURI      string `json:"redis_uri"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`

	// Rendering configuration
	TemplatePath string `json:"template_path"`
	FontPath     string `json:"font_path"`
	Timezone     string `json:"timezone"`

	// Handler configuration
	AttachmentMaxBytes int64         `json:"attachment_max_bytes"`
	HandlerTimeout     time.Duration `json:"handler_timeout"`
	ViewCacheSize      int           `json:"view_cache_size"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return fmt.Errorf("DISCORD_TOKEN environment variable is required")
	}

	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "0s"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if sessionTTL < 0 {
		return fmt.Errorf("invalid SESSION_TTL: must not be negative")
	}

	handlerTimeout, err := time.ParseDuration(getEnvOrDefault("HANDLER_TIMEOUT", "30s"))
	if err != nil {
		return fmt.Errorf("invalid HANDLER_TIMEOUT: %w", err)
	}

	storeDriver := getEnvOrDefault("STORE_DRIVER", StoreDriverSQLite)
	if storeDriver != StoreDriverSQLite && storeDriver != StoreDriverMongo {
		return fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", storeDriver, StoreDriverSQLite, StoreDriverMongo)
	}

	sessionBackend := getEnvOrDefault("SESSION_BACKEND", SessionBackendMemory)
	if sessionBackend != SessionBackendMemory && sessionBackend != SessionBackendRedis {
		return fmt.Errorf("invalid SESSION_BACKEND %q: must be %s or %s", sessionBackend, SessionBackendMemory, SessionBackendRedis)
	}

	timezone := getEnvOrDefault("TIMEZONE", "America/Sao_Paulo")
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	AppConfig = &Config{
		// Discord configuration
		DiscordToken:        token,
		DiscordGuildID:      getEnvOrDefault("DISCORD_GUILD_ID", ""),
		RestrictRoleCommand: getEnvAsBoolOrDefault("RESTRICT_ROLE_COMMAND", false),

		// Server configuration
		Port:        port,
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// Storage configuration
		StoreDriver:   storeDriver,
		DatabasePath:  getEnvOrDefault("DATABASE_PATH", "ids.db"),
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "identidade"),

		// Collection names
		DocumentsCollection:   getEnvOrDefault("MONGODB_DOCUMENTS_COLLECTION", "documents"),
		GuildConfigCollection: getEnvOrDefault("MONGODB_GUILD_CONFIG_COLLECTION", "guild_config"),

		// Session configuration
		SessionBackend: sessionBackend,
		SessionTTL:     sessionTTL,

		// Redis configuration
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		// Rendering configuration
		TemplatePath: getEnvOrDefault("TEMPLATE_PATH", "ID.png"),
		FontPath:     getEnvOrDefault("FONT_PATH", ""),
		Timezone:     timezone,

		// Handler configuration
		AttachmentMaxBytes: int64(getEnvAsIntOrDefault("ATTACHMENT_MAX_BYTES", 10<<20)),
		HandlerTimeout:     handlerTimeout,
		ViewCacheSize:      getEnvAsIntOrDefault("VIEW_CACHE_SIZE", 128),

		// Tracing configuration
		TracingEnabled:  getEnvAsBoolOrDefault("TRACING_ENABLED", false),
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	return nil
}

// Location returns the configured time zone for issue dates.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns environment variable as int or default if not set or invalid
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault returns environment variable as bool or default if not set or invalid
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
