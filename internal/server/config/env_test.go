package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDotenv(t *testing.T, path string) {
	t.Helper()
	orig := dotenvFile
	dotenvFile = path
	t.Cleanup(func() { dotenvFile = orig })
}

func Test_parseEnv_Variables(t *testing.T) {
	withDotenv(t, filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("PORT", "8081")
	t.Setenv("DB_URL", "postgres://alias")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_EXPIRES_IN", "7d")
	t.Setenv("BCRYPT_COST", "11")
	t.Setenv("ADMIN_IDS", "root,ops")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("KAFKA_TOPIC", "users")
	t.Setenv("APP_ENV", "production")
	t.Setenv("FRONTEND_URL", "https://app.example.com")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "60000")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "20")

	var cfg Config
	cfg.LoadDefaults()
	cfg.TokenValidityDuration = time.Hour
	require.NoError(t, parseEnv(&cfg))

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "postgres://alias", cfg.DatabaseDSN)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenValidityDuration)
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.Equal(t, []string{"root", "ops"}, cfg.AdminIDs)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "users", cfg.KafkaTopic)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 20, cfg.RateLimitMax)
}

func Test_parseEnv_ExplicitNamesWinOverAliases(t *testing.T) {
	withDotenv(t, filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("PORT", "8081")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("DB_URL", "postgres://alias")
	t.Setenv("DATABASE_DSN", "postgres://primary")

	var cfg Config
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(&cfg))

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://primary", cfg.DatabaseDSN)
}

func Test_parseEnv_Dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KAFKA_TOPIC=from-dotenv\n"), 0o600))
	withDotenv(t, path)
	t.Cleanup(func() { _ = os.Unsetenv("KAFKA_TOPIC") })

	var cfg Config
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(&cfg))

	assert.Equal(t, "from-dotenv", cfg.KafkaTopic)
}

func Test_parseEnv_InvalidValue(t *testing.T) {
	withDotenv(t, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("BCRYPT_COST", "twelve")

	var cfg Config
	cfg.LoadDefaults()
	assert.Error(t, parseEnv(&cfg))
}
