package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("COURSEHUB_AUTH_JWT_SECRET", "a-very-long-test-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "a-very-long-test-secret", cfg.Auth.JWTSecret)
	assert.False(t, cfg.Workflow.AutoRequestCertificate)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Store:   StoreConfig{Driver: "memory"},
			Auth:    AuthConfig{JWTSecret: "0123456789abcdef", SessionTTL: time.Hour},
			Storage: StorageConfig{Driver: "memory"},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Auth.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = base()
	c.Store.Driver = "mysql"
	assert.Error(t, c.Validate())

	c = base()
	c.Storage.Driver = "b2"
	assert.Error(t, c.Validate())

	c = base()
	c.Server.Port = 0
	assert.Error(t, c.Validate())
}
