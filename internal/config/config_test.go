package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:              "development",
		JWTSecret:        "secure-secret-at-least-32-chars-long",
		DBPassword:       "secure-password",
		Port:             "8080",
		PageSize:         24,
		CategoryPageSize: 20,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"negative category page size", func(c *Config) { c.CategoryPageSize = -1 }, true},
		{"production with default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"production with short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"production with weak db password", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"production with strong settings", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "require"
			c.SessionCookieSecure = true
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SessionTTL(t *testing.T) {
	c := validConfig()
	assert.Equal(t, 14*24*time.Hour, c.SessionTTL())

	c.SessionTTLHours = 2
	assert.Equal(t, 2*time.Hour, c.SessionTTL())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("PAGE_SIZE")

	os.Setenv("APP_ENV", "test")
	os.Setenv("PAGE_SIZE", "12")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, uint(1), c.HomeCityID)
	assert.Equal(t, 12, c.PageSize)
	assert.Equal(t, 20, c.CategoryPageSize)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
}
