package clickhouse

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds ClickHouse connection and session settings.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseHTTP  bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Settings are passed as ClickHouse session settings on the DSN, e.g.
	// async_insert or max_execution_time.
	Settings map[string]string
}

func defaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Port:            9000,
		Database:        "default",
		User:            "default",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		Settings:        map[string]string{},
	}
}

func WithHost(host string) ClientOption {
	return func(c *ClientConfig) { c.Host = host }
}

// WithPort sets the native (9000) or HTTP (8123) port.
func WithPort(port int) ClientOption {
	return func(c *ClientConfig) {
		if port > 0 {
			c.Port = port
		}
	}
}

func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) {
		if database != "" {
			c.Database = database
		}
	}
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

// WithMaxConnections sizes the pool. The archive flushes from a single
// goroutine, so small pools are enough.
func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
	}
}

func WithConnMaxLifetime(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.ConnMaxLifetime = d }
}

// WithTimeouts sets dial/read/write timeouts. Zero keeps the default.
func WithTimeouts(dial, read, write time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
		if write > 0 {
			c.WriteTimeout = write
		}
	}
}

// WithHTTP switches to the HTTP protocol.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

// WithSetting adds one ClickHouse session setting.
func WithSetting(key, value string) ClientOption {
	return func(c *ClientConfig) { c.Settings[key] = value }
}

// WithAsyncInsert lets the server buffer inserts; wait makes the insert
// return only after the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		if !enabled {
			delete(c.Settings, "async_insert")
			delete(c.Settings, "wait_for_async_insert")
			return
		}
		c.Settings["async_insert"] = "1"
		if wait {
			c.Settings["wait_for_async_insert"] = "1"
		}
	}
}

// WithMaxExecutionTime bounds each query on the server side.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d >= time.Second {
			c.Settings["max_execution_time"] = formatSeconds(d)
		}
	}
}
