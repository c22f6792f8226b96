package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp switches into a fresh temp dir for the duration of the test so
// Load() sees only the config.yaml the test writes.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() {
		_ = os.Chdir(originalDir)
	})
	return tmpDir
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chdirTemp(t)

	yamlContent := `
port: "5050"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
redis:
  host: "redis.example.com"
  port: 6379
import:
  preview_ttl: "10m"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644))

	os.Unsetenv("PGHOST")
	os.Unsetenv("BASE_URL")
	t.Setenv("PORT", "6060")

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "6060", cfg.Port, "env should override yaml")
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "http://localhost:6060", cfg.BaseURL)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "redis.example.com", cfg.Redis.Host)
	assert.Equal(t, 10*time.Minute, cfg.Import.PreviewTTL)
}

func TestLoad_MissingConfigFileUsesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENVIRONMENT", "local")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, "", cfg.Redis.Host)
	assert.Equal(t, 30*time.Minute, cfg.Import.PreviewTTL)
	assert.Equal(t, int64(33554432), cfg.Import.MaxUploadBytes)
	assert.NotEmpty(t, cfg.Auth.SessionSecret, "local env falls back to a development secret")
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.NotEmpty(t, cfg.CredentialsKey)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CREDENTIALS_KEY", "")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("JWT_SECRET", "j")
	t.Setenv("CREDENTIALS_KEY", "c")
	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "s", cfg.Auth.SessionSecret)
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("BASE_URL", "https://catalog.example.com")

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com", cfg.BaseURL)
}

func TestLoad_TLSRequiresBothFiles(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("TLS_CERT_PATH", "/nonexistent/cert.pem")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be provided together")
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "catalog",
		Password: "p@ss word",
		Database: "cat",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://catalog:p%40ss%20word@db:5433/cat?sslmode=disable", c.URL())
	assert.Contains(t, c.ConnectionString(), "dbname=cat")
}
