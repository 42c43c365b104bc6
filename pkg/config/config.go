package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Logging     struct {
		Level          string `yaml:"level" default:"info"`
		Format         string `yaml:"format" default:"console"`
		Output         string `yaml:"output" default:"stdout"`
		FilePath       string `yaml:"file_path"`
		ErrorCollector struct {
			Enabled       bool          `yaml:"enabled"`
			Topic         string        `yaml:"topic" default:"marketsim.errors"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"1m"`
		} `yaml:"error_collector"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Simulation struct {
		Retention           int           `yaml:"retention" default:"50"`
		SeedBars            int           `yaml:"seed_bars" default:"30"`
		Seed                int64         `yaml:"seed"`
		AutoAdvanceInterval time.Duration `yaml:"auto_advance_interval" default:"5s"`
		// ClearEventsAfterCandle drops queued events once a candle has used them.
		ClearEventsAfterCandle bool `yaml:"clear_events_after_candle"`
		DefaultProfile         struct {
			Size   string `yaml:"size" default:"mid-cap"`
			Sector string `yaml:"sector" default:"it"`
		} `yaml:"default_profile"`
	} `yaml:"simulation"`
	Stream struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ClientBuffer int           `yaml:"client_buffer" default:"64"`
	} `yaml:"stream"`
	Pipeline struct {
		BufferSize   int           `yaml:"buffer_size" default:"256"`
		MaxRetries   int           `yaml:"max_retries" default:"3"`
		BackoffMin   time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax   time.Duration `yaml:"backoff_max" default:"2s"`
		DrainTimeout time.Duration `yaml:"drain_timeout" default:"5s"`
	} `yaml:"pipeline"`
	Backend struct {
		URL        string        `yaml:"url"`
		Timeout    time.Duration `yaml:"timeout" default:"15s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		RateLimit  float64       `yaml:"rate_limit" default:"5"`
		Burst      int           `yaml:"burst" default:"5"`
		CacheTTL   time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"backend"`
	Narrative struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"3s"`
	} `yaml:"narrative"`
	Redis struct {
		Enabled     bool          `yaml:"enabled"`
		Addr        string        `yaml:"addr" default:"localhost:6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"marketsim"`
		PoolSize    int           `yaml:"pool_size" default:"10"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		IOTimeout   time.Duration `yaml:"io_timeout" default:"3s"`
		// LockWait bounds how long a request waits for another instance
		// computing the same forecast.
		LockWait time.Duration `yaml:"lock_wait" default:"5s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		CandleTopic  string   `yaml:"candle_topic" default:"marketsim.candles"`
		ControlTopic string   `yaml:"control_topic" default:"marketsim.controls"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"marketsim"`
			StartFrom  string        `yaml:"start_from" default:"latest"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"marketsim"`
		Table        string        `yaml:"table" default:"candles"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		WaitForAsync bool          `yaml:"wait_for_async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecTime  time.Duration `yaml:"max_execution_time" default:"30s"`
		BatchSize    int           `yaml:"batch_size" default:"50"`
		FlushEvery   time.Duration `yaml:"flush_every" default:"5s"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration holding only the default values.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads a .env file when present, then the YAML config, then
// applies MARKETSIM_* environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MARKETSIM_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("MARKETSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MARKETSIM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MARKETSIM_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MARKETSIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MARKETSIM_SEED: %w", err)
		}
		c.Simulation.Seed = seed
	}
	if v := os.Getenv("MARKETSIM_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("MARKETSIM_NARRATIVE_URL"); v != "" {
		c.Narrative.URL = v
	}
	if v := os.Getenv("MARKETSIM_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("MARKETSIM_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("MARKETSIM_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("MARKETSIM_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Simulation.Retention <= 0 {
		return fmt.Errorf("simulation.retention must be positive")
	}
	if c.Simulation.SeedBars <= 0 || c.Simulation.SeedBars > c.Simulation.Retention {
		return fmt.Errorf("simulation.seed_bars must be in 1..%d, got %d", c.Simulation.Retention, c.Simulation.SeedBars)
	}
	if c.Simulation.AutoAdvanceInterval <= 0 {
		return fmt.Errorf("simulation.auto_advance_interval must be positive")
	}
	switch c.Simulation.DefaultProfile.Size {
	case "small-cap", "mid-cap", "large-cap":
	default:
		return fmt.Errorf("simulation.default_profile.size must be small-cap, mid-cap or large-cap, got '%s'", c.Simulation.DefaultProfile.Size)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Logging.ErrorCollector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.error_collector requires kafka")
	}
	return nil
}
