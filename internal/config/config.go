package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
		DSN    string
	}
	Session struct {
		Store      string
		Secret     string
		CookieName string
		TTL        time.Duration
		Secure     bool
	}
	Redis struct {
		Addr      string
		Password  string
		DB        int
		KeyPrefix string
	}
	Auth struct {
		BcryptCost int
	}
	Metrics struct {
		Enabled bool
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// variables already present in the environment win over .env
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/tally.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookiename", "tally.sid")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.secure", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyprefix", "tally:session")
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.level", "info")
}

// Validate reports the first configuration problem that would prevent startup.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database path is required for sqlite")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis addr is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported session store %q", c.Session.Store)
	}

	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("session secret is required")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
