package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	PublicURL string `env:"PUBLIC_URL, default=http://localhost:8080"`

	Discord DiscordConfig
	Session SessionConfig
	Storage StorageConfig
	Audit   AuditConfig
}

type DiscordConfig struct {
	ClientID     string `env:"DISCORD_CLIENT_ID"`
	ClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	GuildID      string `env:"DISCORD_GUILD_ID"`
	// RedirectURI defaults to PUBLIC_URL + "/auth/callback".
	RedirectURI string   `env:"DISCORD_REDIRECT_URI"`
	APIBase     string   `env:"DISCORD_API_BASE, default=https://discord.com/api"`
	AdminIDs    []string `env:"ADMIN_USER_IDS"`
}

type SessionConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TTL       time.Duration `env:"SESSION_TTL,       default=168h"`
	IdleEvict time.Duration `env:"SESSION_IDLE_EVICT, default=30m"`
	// SealKey is a base64 32-byte key; empty stores provider tokens unsealed.
	SealKey string `env:"TOKEN_SEAL_KEY"`
}

type StorageConfig struct {
	Driver     string `env:"STORAGE_DRIVER, default=redis"`
	RedisAddr  string `env:"REDIS_ADDR,     default=localhost:6379"`
	RedisPass  string `env:"REDIS_PASSWORD"`
	RedisDB    int    `env:"REDIS_DB,       default=0"`
	SQLitePath string `env:"SQLITE_PATH,    default=hub-auth.db"`
}

type AuditConfig struct {
	Enabled  bool   `env:"AUDIT_ENABLED, default=false"`
	MongoURI string `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB,      default=hub_auth"`
	Workers  int    `env:"AUDIT_WORKERS, default=4"`
}

const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through l, fills derived defaults and
// validates the result.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}

	if cfg.Discord.RedirectURI == "" {
		cfg.Discord.RedirectURI = strings.TrimRight(cfg.PublicURL, "/") + "/auth/callback"
	}
	ids := cfg.Discord.AdminIDs[:0]
	for _, id := range cfg.Discord.AdminIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	cfg.Discord.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.ClientID == "" {
		errs = append(errs, errors.New("DISCORD_CLIENT_ID is required"))
	}
	if c.Discord.ClientSecret == "" {
		errs = append(errs, errors.New("DISCORD_CLIENT_SECRET is required"))
	}
	if c.Discord.GuildID == "" {
		errs = append(errs, errors.New("DISCORD_GUILD_ID is required"))
	}
	if c.Session.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Storage.Driver {
	case DriverRedis, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of redis, sqlite, memory", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
