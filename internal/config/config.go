package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreTypeMemory = "memory"
	StoreTypeBolt   = "bolt"
	StoreTypeJSON   = "json"
	StoreTypeRedis  = "redis"

	RemoteTypeJSON = "json"
	RemoteTypeFeed = "feed"

	PolicyJoin   = "join"
	PolicyReject = "reject"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Store   StoreConfig   `mapstructure:"store"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Misc    MiscConfig    `mapstructure:"misc"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutDownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
}

// RemoteConfig describes where the playlist is fetched from.
type RemoteConfig struct {
	Type    string        `mapstructure:"type"` // "json" or "feed"
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the local store backend.
type StoreConfig struct {
	Type          string `mapstructure:"type"` // memory, bolt, json or redis
	Path          string `mapstructure:"path"` // bolt and json only
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

type RefreshConfig struct {
	Policy    string        `mapstructure:"policy"` // "join" or "reject"
	Timeout   time.Duration `mapstructure:"timeout"`
	OnStartup bool          `mapstructure:"on_startup"`
}

type MiscConfig struct {
	LogLevel string `mapstructure:"log_level"`
	GinMode  string `mapstructure:"gin_mode"`
}

// LoadConfig reads .env, config.yaml and DEVBYTES_* environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	setDefaults(v)

	// Environment variables like DEVBYTES_SERVER_PORT override server.port
	v.SetEnvPrefix("DEVBYTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("remote.type", RemoteTypeJSON)
	v.SetDefault("remote.url", "https://android-kotlin-fun-mars-server.appspot.com/devbytes")
	v.SetDefault("remote.timeout", 15*time.Second)

	v.SetDefault("store.type", StoreTypeBolt)
	v.SetDefault("store.path", "./data/devbytes.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "devbytes")

	v.SetDefault("refresh.policy", PolicyJoin)
	v.SetDefault("refresh.timeout", 30*time.Second)
	v.SetDefault("refresh.on_startup", true)

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
}

func (c *Config) validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	// write_timeout may be zero: the item stream endpoint keeps responses open.
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, errors.New("server.write_timeout must not be negative"))
	}
	if c.Server.IdleTimeout <= 0 {
		errs = append(errs, errors.New("server.idle_timeout must be positive"))
	}
	if c.Server.ShutDownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}

	switch c.Remote.Type {
	case RemoteTypeJSON, RemoteTypeFeed:
	default:
		errs = append(errs, fmt.Errorf("remote.type must be %q or %q, got %q", RemoteTypeJSON, RemoteTypeFeed, c.Remote.Type))
	}
	if strings.TrimSpace(c.Remote.URL) == "" {
		errs = append(errs, errors.New("remote.url is required"))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}

	switch c.Store.Type {
	case StoreTypeMemory:
	case StoreTypeBolt, StoreTypeJSON:
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, fmt.Errorf("store.path is required for store type %q", c.Store.Type))
		}
	case StoreTypeRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			errs = append(errs, errors.New("store.redis_addr is required for store type \"redis\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.type %q", c.Store.Type))
	}

	switch c.Refresh.Policy {
	case PolicyJoin, PolicyReject:
	default:
		errs = append(errs, fmt.Errorf("refresh.policy must be %q or %q, got %q", PolicyJoin, PolicyReject, c.Refresh.Policy))
	}
	if c.Refresh.Timeout < 0 {
		errs = append(errs, errors.New("refresh.timeout must not be negative"))
	}

	return errors.Join(errs...)
}
