package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole bridge configuration: one YAML file, with a handful
// of LEDSTRIP_* environment variables layered on top.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Lights    []LightConfig   `yaml:"lights"`
}

// SiteConfig names this bridge in logs and status messages.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig locates the SQLite state history database.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays bounds the light state audit trail. 0 keeps everything.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// MQTTConfig is the broker connection. QoS applies to the bridge's own
// status and republished state; each light carries its own.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig delays are in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig is the REST listener.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig holds HTTP server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

func (t APITimeoutConfig) ReadTimeout() time.Duration  { return seconds(t.Read) }
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }
func (t APITimeoutConfig) IdleTimeout() time.Duration  { return seconds(t.Idle) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// CORSConfig lists browser origins allowed to call the API. Empty allows any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig tunes the live update endpoint. Intervals are in seconds.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig enables light telemetry. FlushInterval is in seconds.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects level (debug, info, warn, error), format (json,
// text) and output (stdout, stderr or a file path).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig signs API bearer tokens. An empty secret leaves the API open.
// AccessTokenTTL is in minutes.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads the YAML file at path and hands it to Parse.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse layers, in order: built-in defaults, the YAML document, per-light
// defaults, then environment overrides. The result is validated before it
// is returned.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	for i := range cfg.Lights {
		cfg.Lights[i].applyDefaults()
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{ID: "ledstrip-001", Name: "LED Strip Bridge"},
		Database: DatabaseConfig{
			Path:                 "./data/ledstrip.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker:    MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "ledstrip-bridge"},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		InfluxDB:  InfluxDBConfig{BatchSize: 100, FlushInterval: 10},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Security:  SecurityConfig{JWT: JWTConfig{AccessTokenTTL: 15}},
	}
}

// envOverride binds one LEDSTRIP_* variable to a field.
type envOverride struct {
	name  string
	apply func(cfg *Config, v string)
}

func setString(field func(*Config) *string) func(*Config, string) {
	return func(cfg *Config, v string) { *field(cfg) = v }
}

// setInt ignores values that are not integers.
func setInt(field func(*Config) *int) func(*Config, string) {
	return func(cfg *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*field(cfg) = n
		}
	}
}

// setBool ignores values strconv.ParseBool rejects.
func setBool(field func(*Config) *bool) func(*Config, string) {
	return func(cfg *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			*field(cfg) = b
		}
	}
}

var envOverrides = []envOverride{
	{"LEDSTRIP_SITE_ID", setString(func(c *Config) *string { return &c.Site.ID })},
	{"LEDSTRIP_DATABASE_PATH", setString(func(c *Config) *string { return &c.Database.Path })},
	{"LEDSTRIP_MQTT_HOST", setString(func(c *Config) *string { return &c.MQTT.Broker.Host })},
	{"LEDSTRIP_MQTT_PORT", setInt(func(c *Config) *int { return &c.MQTT.Broker.Port })},
	{"LEDSTRIP_MQTT_USERNAME", setString(func(c *Config) *string { return &c.MQTT.Auth.Username })},
	{"LEDSTRIP_MQTT_PASSWORD", setString(func(c *Config) *string { return &c.MQTT.Auth.Password })},
	{"LEDSTRIP_API_HOST", setString(func(c *Config) *string { return &c.API.Host })},
	{"LEDSTRIP_API_PORT", setInt(func(c *Config) *int { return &c.API.Port })},
	{"LEDSTRIP_INFLUXDB_ENABLED", setBool(func(c *Config) *bool { return &c.InfluxDB.Enabled })},
	{"LEDSTRIP_INFLUXDB_URL", setString(func(c *Config) *string { return &c.InfluxDB.URL })},
	{"LEDSTRIP_INFLUXDB_TOKEN", setString(func(c *Config) *string { return &c.InfluxDB.Token })},
	{"LEDSTRIP_JWT_SECRET", setString(func(c *Config) *string { return &c.Security.JWT.Secret })},
	{"LEDSTRIP_LOG_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
	{"LEDSTRIP_LOG_FORMAT", setString(func(c *Config) *string { return &c.Logging.Format })},
}

// applyEnvOverrides applies every non-empty LEDSTRIP_* variable.
func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

// minJWTSecretLength is the shortest secret accepted for HS256 signing.
const minJWTSecretLength = 32

// Validate reports every problem at once, one joined error per field.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Site.ID == "" {
		fail("site.id is required")
	}
	if c.Database.Path == "" {
		fail("database.path is required")
	}
	if c.Database.HistoryRetentionDays < 0 {
		fail("database.history_retention_days cannot be negative")
	}
	if c.MQTT.Broker.Host == "" {
		fail("mqtt.broker.host is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		fail("mqtt.qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		fail("api.port must be between 1 and 65535, got %d", c.API.Port)
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		fail("influxdb.url is required when influxdb is enabled")
	}
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		fail("security.jwt.secret must be at least %d characters", minJWTSecretLength)
	}

	if len(c.Lights) == 0 {
		fail("at least one light must be configured")
	}
	seen := make(map[string]int, len(c.Lights))
	for i := range c.Lights {
		l := &c.Lights[i]
		if first, dup := seen[l.ID]; dup && l.ID != "" {
			fail("lights[%d].id %q is duplicated (first at lights[%d])", i, l.ID, first)
		} else if !dup {
			seen[l.ID] = i
		}
		for _, msg := range l.validate(i) {
			errs = append(errs, errors.New(msg))
		}
	}

	return errors.Join(errs...)
}
