package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ConfigYAML(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://swickapp.example.com
  timeout: 5s
payment:
  gateway_url: https://pay.example.com
  min_charge: 0.75
tips:
  low: 12
  mid: 18
  high: 25
session:
  role: server
database:
  host: db
  port: 5433
rabbitmq:
  host: mq
  port: 5673
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://swickapp.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "0.75", cfg.Payment.MinCharge.StringFixed(2))
	assert.Equal(t, TipsConfig{Low: 12, Mid: 18, High: 25}, cfg.Tips)
	assert.Equal(t, "server", cfg.Session.Role)
	assert.Equal(t, "postgres://swick:@db:5433/swick?sslmode=disable", cfg.DatabaseURL())
	assert.Equal(t, "amqp://guest:guest@mq:5673/", cfg.RabbitMQURL())
	// untouched keys keep their defaults
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, "swick_events", cfg.RabbitMQ.Exchange)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "customer", cfg.Session.Role)
	assert.Equal(t, "0.50", cfg.Payment.MinCharge.StringFixed(2))
	assert.Equal(t, 15, cfg.Tips.Mid)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SWICK_ROLE", "server")
	t.Setenv("SWICK_HTTP_PORT", "9090")
	t.Setenv("SWICK_MIN_CHARGE", "1.00")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Session.Role)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "1.00", cfg.Payment.MinCharge.StringFixed(2))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown role", body: "session:\n  role: manager\n"},
		{name: "tier above 100", body: "tips:\n  high: 120\n"},
		{name: "negative min charge", body: "payment:\n  min_charge: -1\n"},
		{name: "bad yaml", body: "api: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadEnvPort(t *testing.T) {
	t.Setenv("SWICK_DB_PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)
}
