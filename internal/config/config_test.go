package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "production") // skips .env lookup
	for _, key := range []string{"SERVER_PORT", "DB_DRIVER", "SQLITE_PATH", "RECAP_LIMIT", "ALLOWED_EMAILS", "CHAT_CACHE_TTL_SECONDS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "chatsync.db", cfg.SQLitePath)
	assert.Equal(t, 3, cfg.RecapLimit)
	assert.Nil(t, cfg.AllowedEmails)
	assert.Equal(t, 300*time.Second, cfg.ChatCacheTTL)
}

func TestLoadParsesValues(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("RECAP_LIMIT", "5")
	t.Setenv("ALLOWED_EMAILS", " a@example.com, ,b@example.com ")
	t.Setenv("TURN_RATE_WINDOW_SECONDS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5, cfg.RecapLimit)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AllowedEmails)
	assert.Equal(t, 60*time.Second, cfg.TurnRateWindow)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DBDriver: "sqlite", SQLitePath: "x.db", RecapLimit: 3}
	require.NoError(t, cfg.Validate())

	cfg.Environment = "production"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg = &Config{DBDriver: "postgres", RecapLimit: 3}
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg = &Config{DBDriver: "mysql", RecapLimit: 3}
	assert.ErrorContains(t, cfg.Validate(), "unsupported DB_DRIVER")
}

func TestSigningSecret(t *testing.T) {
	cfg := &Config{}
	secret, fallback := cfg.SigningSecret()
	assert.Equal(t, DevJWTSecret, secret)
	assert.True(t, fallback)

	cfg.JWTSecretKey = "real"
	secret, fallback = cfg.SigningSecret()
	assert.Equal(t, "real", secret)
	assert.False(t, fallback)

	cfg = &Config{Environment: "production"}
	secret, fallback = cfg.SigningSecret()
	assert.Empty(t, secret)
	assert.False(t, fallback)
}
