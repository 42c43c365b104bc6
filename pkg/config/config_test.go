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

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 50, c.Simulation.Retention)
	assert.Equal(t, 30, c.Simulation.SeedBars)
	assert.Equal(t, 5*time.Second, c.Simulation.AutoAdvanceInterval)
	assert.Equal(t, "mid-cap", c.Simulation.DefaultProfile.Size)
	assert.True(t, c.Metrics.Enabled)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "marketsim.candles", c.Kafka.CandleTopic)
	require.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
metrics:
  enabled: false
simulation:
  retention: 60
  auto_advance_interval: 250ms
  default_profile:
    size: large-cap
    sector: energy
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, 60, c.Simulation.Retention)
	assert.Equal(t, 30, c.Simulation.SeedBars)
	assert.Equal(t, 250*time.Millisecond, c.Simulation.AutoAdvanceInterval)
	assert.Equal(t, "energy", c.Simulation.DefaultProfile.Sector)
}

func TestLoadRepoConfig(t *testing.T) {
	c, err := Load("../../config/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "marketsim.controls.dlq", c.Kafka.Consumer.DLQTopic)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"empty environment", func(c *Config) { c.Environment = "" }, "environment is required"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"seed bars above retention", func(c *Config) { c.Simulation.SeedBars = 51 }, "simulation.seed_bars"},
		{"zero interval", func(c *Config) { c.Simulation.AutoAdvanceInterval = 0 }, "auto_advance_interval"},
		{"bad size", func(c *Config) { c.Simulation.DefaultProfile.Size = "mega-cap" }, "default_profile.size"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"clickhouse without host", func(c *Config) { c.ClickHouse.Enabled = true; c.ClickHouse.Host = "" }, "clickhouse.host"},
		{"collector without kafka", func(c *Config) { c.Logging.ErrorCollector.Enabled = true }, "error_collector"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.ErrorContains(t, c.Validate(), tc.errMsg)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("MARKETSIM_PORT", "9091")
	t.Setenv("MARKETSIM_SEED", "1234")
	t.Setenv("MARKETSIM_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MARKETSIM_BACKEND_URL", "http://sim:5000")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 9091, c.Server.Port)
	assert.Equal(t, int64(1234), c.Simulation.Seed)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "http://sim:5000", c.Backend.URL)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("MARKETSIM_PORT", "eighty")
	_, err := LoadWithEnv(path)
	assert.ErrorContains(t, err, "MARKETSIM_PORT")
}
