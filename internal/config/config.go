package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines pos-server configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"POS_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"POS_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"POS_REDIS_ADDR"`
		Password string `yaml:"password" env:"POS_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"POS_REDIS_DB"`
	} `yaml:"redis"`
	Cache struct {
		StaleAfterSeconds int `yaml:"staleAfterSeconds" env:"POS_CACHE_STALE_AFTER"`
		TTLSeconds        int `yaml:"ttlSeconds" env:"POS_CACHE_TTL"`
	} `yaml:"cache"`
	Loader struct {
		SessionLimit    int `yaml:"sessionLimit" env:"POS_LOADER_SESSION_LIMIT"`
		StationPageSize int `yaml:"stationPageSize" env:"POS_LOADER_STATION_PAGE_SIZE"`
		DebounceMillis  int `yaml:"debounceMillis" env:"POS_LOADER_DEBOUNCE_MS"`
	} `yaml:"loader"`
	Auth struct {
		Secret       string `yaml:"secret" env:"POS_AUTH_SECRET"`
		TokenTTLMins int    `yaml:"tokenTtlMinutes" env:"POS_AUTH_TOKEN_TTL"`
	} `yaml:"auth"`
	WS struct {
		PingIntervalSeconds int `yaml:"pingIntervalSeconds" env:"POS_WS_PING_INTERVAL"`
	} `yaml:"ws"`
	Log struct {
		Level    string `yaml:"level" env:"LOG_LEVEL"`
		Encoding string `yaml:"encoding" env:"LOG_ENCODING"`
	} `yaml:"log"`
}

// Load reads configuration from the optional YAML file and environment.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Cache.StaleAfterSeconds = 300
	cfg.Cache.TTLSeconds = 86400
	cfg.Loader.SessionLimit = 100
	cfg.Loader.StationPageSize = 50
	cfg.Loader.DebounceMillis = 500
	cfg.Auth.TokenTTLMins = 480
	cfg.WS.PingIntervalSeconds = 30
	cfg.Log.Level = "info"
	cfg.Log.Encoding = "json"

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Auth.Secret) == "" {
		return nil, errors.New("config: auth secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// CacheStaleAfter is the age past which a cached collection triggers a
// silent background refresh.
func (c *Config) CacheStaleAfter() time.Duration {
	if c.Cache.StaleAfterSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Cache.StaleAfterSeconds) * time.Second
}

// CacheTTL bounds how long cached collections survive in redis.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// DebounceWindow is the settle window for push-channel refreshes.
func (c *Config) DebounceWindow() time.Duration {
	if c.Loader.DebounceMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Loader.DebounceMillis) * time.Millisecond
}

// TokenTTL returns staff token lifetime.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLMins <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLMins) * time.Minute
}

// WSPingInterval returns the dashboard socket keepalive interval.
func (c *Config) WSPingInterval() time.Duration {
	if c.WS.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WS.PingIntervalSeconds) * time.Second
}
