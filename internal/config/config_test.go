package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv убирает переменные, чтобы сработали значения по умолчанию.
// Пустое значение envconfig считает заданным.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "DATABASE_URL", "POSTGRESQL_HOST", "POSTGRESQL_PORT", "POSTGRESQL_USER",
		"POSTGRESQL_PASSWORD", "POSTGRESQL_DBNAME", "JWT_SECRET", "REFRESH_SECRET",
		"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "STORAGE_DRIVER", "S3_BUCKET",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_DevelopmentDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "market")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "tasks")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "postgres://market:p%40ss@db:5432/tasks?sslmode=disable", cfg.DatabaseURL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.RefreshSecret)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.AllowedOrigins)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://market.example.com")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REFRESH_SECRET", "fedcba9876543210fedcba9876543210")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_S3NeedsBucket(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "s3")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_TrimsOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
