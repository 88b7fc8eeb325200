package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv sets environment variables for the duration of the test
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		setEnv       bool
		want         string
	}{
		{
			name:         "environment variable set",
			key:          "TEST_KEY_1",
			defaultValue: "default",
			envValue:     "custom",
			setEnv:       true,
			want:         "custom",
		},
		{
			name:         "environment variable not set",
			key:          "TEST_KEY_2",
			defaultValue: "default",
			setEnv:       false,
			want:         "default",
		},
		{
			name:         "empty environment variable",
			key:          "TEST_KEY_3",
			defaultValue: "default",
			envValue:     "",
			setEnv:       true,
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvOrDefault(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		want     int
	}{
		{name: "valid integer", envValue: "42", setEnv: true, want: 42},
		{name: "not set", setEnv: false, want: 10},
		{name: "invalid integer", envValue: "abc", setEnv: true, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv("TEST_INT", tt.envValue)
			}
			assert.Equal(t, tt.want, getEnvAsIntOrDefault("TEST_INT", 10))
		})
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	t.Setenv("TEST_BOOL_TRUE", "true")
	t.Setenv("TEST_BOOL_BAD", "maybe")

	assert.True(t, getEnvAsBoolOrDefault("TEST_BOOL_TRUE", false))
	assert.True(t, getEnvAsBoolOrDefault("TEST_BOOL_BAD", true))
	assert.False(t, getEnvAsBoolOrDefault("TEST_BOOL_MISSING", false))
}

func TestLoadConfig_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"DISCORD_TOKEN": "token"})

	require.NoError(t, LoadConfig())

	assert.Equal(t, "token", AppConfig.DiscordToken)
	assert.Equal(t, 8080, AppConfig.Port)
	assert.Equal(t, "development", AppConfig.Environment)
	assert.Equal(t, StoreDriverSQLite, AppConfig.StoreDriver)
	assert.Equal(t, "ids.db", AppConfig.DatabasePath)
	assert.Equal(t, SessionBackendMemory, AppConfig.SessionBackend)
	assert.Equal(t, time.Duration(0), AppConfig.SessionTTL)
	assert.Equal(t, "ID.png", AppConfig.TemplatePath)
	assert.Equal(t, "America/Sao_Paulo", AppConfig.Timezone)
	assert.Equal(t, int64(10<<20), AppConfig.AttachmentMaxBytes)
	assert.Equal(t, 30*time.Second, AppConfig.HandlerTimeout)
	assert.Equal(t, 128, AppConfig.ViewCacheSize)
	assert.False(t, AppConfig.RestrictRoleCommand)
	assert.False(t, AppConfig.TracingEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"DISCORD_TOKEN":         "token",
		"DISCORD_GUILD_ID":      "42",
		"STORE_DRIVER":          "mongo",
		"SESSION_BACKEND":       "redis",
		"SESSION_TTL":           "15m",
		"REDIS_DB":              "3",
		"TIMEZONE":              "UTC",
		"RESTRICT_ROLE_COMMAND": "true",
		"PORT":                  "9090",
	})

	require.NoError(t, LoadConfig())

	assert.Equal(t, "42", AppConfig.DiscordGuildID)
	assert.Equal(t, StoreDriverMongo, AppConfig.StoreDriver)
	assert.Equal(t, SessionBackendRedis, AppConfig.SessionBackend)
	assert.Equal(t, 15*time.Minute, AppConfig.SessionTTL)
	assert.Equal(t, 3, AppConfig.RedisDB)
	assert.Equal(t, 9090, AppConfig.Port)
	assert.True(t, AppConfig.RestrictRoleCommand)
	assert.Equal(t, time.UTC, AppConfig.Location())
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing token", env: map[string]string{"DISCORD_TOKEN": ""}},
		{name: "invalid port", env: map[string]string{"DISCORD_TOKEN": "t", "PORT": "http"}},
		{name: "invalid redis db", env: map[string]string{"DISCORD_TOKEN": "t", "REDIS_DB": "x"}},
		{name: "invalid session ttl", env: map[string]string{"DISCORD_TOKEN": "t", "SESSION_TTL": "soon"}},
		{name: "negative session ttl", env: map[string]string{"DISCORD_TOKEN": "t", "SESSION_TTL": "-1m"}},
		{name: "invalid handler timeout", env: map[string]string{"DISCORD_TOKEN": "t", "HANDLER_TIMEOUT": "x"}},
		{name: "unknown store driver", env: map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "postgres"}},
		{name: "unknown session backend", env: map[string]string{"DISCORD_TOKEN": "t", "SESSION_BACKEND": "memcached"}},
		{name: "unknown timezone", env: map[string]string{"DISCORD_TOKEN": "t", "TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			assert.Error(t, LoadConfig())
		})
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}
