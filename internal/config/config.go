package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverHybrid = "hybrid"
	DriverREST   = "rest"
)

type Config struct {
	Addr     string      `yaml:"addr"`
	Origin   string      `yaml:"origin"`
	TimeZone string      `yaml:"time_zone"`
	Log      LogConfig   `yaml:"log"`
	Store    StoreConfig `yaml:"store"`
	Redis    RedisConfig `yaml:"redis"`
	Admins   []Admin     `yaml:"admins"`
}

type LogConfig struct {
	Format string `yaml:"format"` // "console" or "json"
}

type StoreConfig struct {
	Driver     string     `yaml:"driver"`
	SQLitePath string     `yaml:"sqlite_path"`
	BadgerPath string     `yaml:"badger_path"`
	REST       RESTConfig `yaml:"rest"`
}

type RESTConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	AdminToken  string `yaml:"admin_token"`
	EditorToken string `yaml:"editor_token"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// Admin is a login for the admin screen and the store role it acts as.
type Admin struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		Origin:   "http://localhost:8080",
		TimeZone: "Europe/Zurich",
		Log:      LogConfig{Format: "console"},
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/newsdesk.db",
			BadgerPath: "data/badger",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
	}
}

// Load reads the YAML file at path (if it exists) over the defaults and then
// applies NEWSDESK_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.Origin = strings.TrimRight(cfg.Origin, "/")
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"NEWSDESK_ADDR":              &c.Addr,
		"NEWSDESK_ORIGIN":            &c.Origin,
		"NEWSDESK_TIME_ZONE":         &c.TimeZone,
		"NEWSDESK_LOG_FORMAT":        &c.Log.Format,
		"NEWSDESK_STORE_DRIVER":      &c.Store.Driver,
		"NEWSDESK_SQLITE_PATH":       &c.Store.SQLitePath,
		"NEWSDESK_BADGER_PATH":       &c.Store.BadgerPath,
		"NEWSDESK_REST_URL":          &c.Store.REST.URL,
		"NEWSDESK_REST_API_KEY":      &c.Store.REST.APIKey,
		"NEWSDESK_REST_ADMIN_TOKEN":  &c.Store.REST.AdminToken,
		"NEWSDESK_REST_EDITOR_TOKEN": &c.Store.REST.EditorToken,
		"NEWSDESK_REDIS_ADDR":        &c.Redis.Addr,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	// NEWSDESK_ADMIN=user:password:role adds one more login. The password
	// may contain colons.
	if v, ok := os.LookupEnv("NEWSDESK_ADMIN"); ok {
		user, rest, found := strings.Cut(v, ":")
		i := strings.LastIndex(rest, ":")
		if found && i >= 0 {
			c.Admins = append(c.Admins, Admin{User: user, Password: rest[:i], Role: rest[i+1:]})
		}
	}
}

// Validate checks the values a command cannot run without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case DriverHybrid:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the hybrid driver")
		}
	case DriverREST:
		if c.Store.REST.URL == "" || c.Store.REST.APIKey == "" {
			return errors.New("store.rest.url and store.rest.api_key are required for the rest driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	for _, a := range c.Admins {
		switch a.Role {
		case "admin", "editor", "anon":
		default:
			return fmt.Errorf("admin %q has unknown role %q", a.User, a.Role)
		}
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time_zone: %w", err)
	}
	return nil
}

// Location returns the time zone dates are displayed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
