package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkbase/inkbase/pkg/vfs"
)

func validConfig() *Config {
	cfg := &Config{
		Host:     "localhost",
		Port:     5432,
		Database: "inkbase",
		User:     "app",
		Password: "secret",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, 30*time.Second, cfg.MaxConnIdleTime)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "prefer", cfg.SSLMode)
}

func TestValidateMissingParameters(t *testing.T) {
	for _, field := range []string{"host", "port", "database", "user", "password"} {
		cfg := validConfig()
		switch field {
		case "host":
			cfg.Host = ""
		case "port":
			cfg.Port = 0
		case "database":
			cfg.Database = ""
		case "user":
			cfg.User = ""
		case "password":
			cfg.Password = ""
		}

		err := cfg.Validate()
		assert.True(t, vfs.IsKind(err, vfs.KindConfigMissing), "missing %s: Validate = %v", field, err)
	}
}

func TestValidatePoolBounds(t *testing.T) {
	cfg := validConfig()
	cfg.MinConns = 50
	assert.Error(t, cfg.Validate(), "min_conns > max_conns")

	cfg = validConfig()
	cfg.SSLMode = "sometimes"
	assert.Error(t, cfg.Validate(), "bogus ssl_mode")

	require.NoError(t, validConfig().Validate(), "valid config rejected")
}

func TestConnectionString(t *testing.T) {
	cfg := validConfig()
	got := cfg.ConnectionString()

	for _, part := range []string{
		"host=localhost", "port=5432", "dbname=inkbase",
		"user=app", "password=secret", "sslmode=prefer", "connect_timeout=2",
	} {
		assert.Contains(t, got, part)
	}
}
