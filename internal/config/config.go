package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server    `mapstructure:"server"`
	Redis     Redis     `mapstructure:"redis"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Quiz      Quiz      `mapstructure:"quiz"`
	WebSocket WebSocket `mapstructure:"websocket"`
	Log       Log       `mapstructure:"log"`
}

type Server struct {
	Port            string `mapstructure:"port"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL of the session liveness markers.
	TTL string `mapstructure:"ttl"`
}

type Postgres struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

type Quiz struct {
	// TTL of cached question sequences.
	TTL              string `mapstructure:"ttl"`
	DefaultTimeLimit string `mapstructure:"default_time_limit"`
	// Fixtures seeds the in-memory backend when no postgres url is set.
	Fixtures string `mapstructure:"fixtures"`
}

type WebSocket struct {
	SendBuffer     int      `mapstructure:"send_buffer"`
	PingInterval   string   `mapstructure:"ping_interval"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default is the configuration used for keys missing from the file and the environment.
func Default() Config {
	return Config{
		Server: Server{Port: "8080", ShutdownTimeout: "10s"},
		Redis:  Redis{TTL: "10m"},
		Postgres: Postgres{
			Migrate: true,
		},
		Quiz: Quiz{
			TTL:              "10m",
			DefaultTimeLimit: "30s",
			Fixtures:         "config/fixtures.yaml",
		},
		WebSocket: WebSocket{
			SendBuffer:     64,
			PingInterval:   "30s",
			AllowedOrigins: []string{"*"},
		},
		Log: Log{Level: "info"},
	}
}

// Load reads YAML config from path on top of Default. Every key can be overridden by
// an env var named after its path, e.g. SERVER_PORT or REDIS_ADDR.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	m := make(map[string]any)

	if err := mapstructure.Decode(cfg, &m); err != nil {
		return cfg, fmt.Errorf("mapstructure: %w", err)
	}
	if err := v.MergeConfigMap(m); err != nil {
		return cfg, fmt.Errorf("merge config map: %w", err)
	}

	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config from file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
