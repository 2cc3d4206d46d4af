// Package config loads settings from defaults, an optional YAML file, a
// .env file and FLYLOW_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "FLYLOW"

// Store backends.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

var (
	ErrAPIKeyRequired      = errors.New("skyscrapper.api_key is required")
	ErrUnknownStoreBackend = errors.New("unknown store backend")
	ErrPostgresURLRequired = errors.New("store.postgres_url is required for the postgres backend")
	ErrMongoURIRequired    = errors.New("store.mongo_uri is required for the mongo backend")
)

type Server struct {
	Addr           string   `mapstructure:"addr"`
	PublicURL      string   `mapstructure:"public_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Storage struct {
	Dir string `mapstructure:"dir"`
}

type Airports struct {
	File string `mapstructure:"file"`
}

type Store struct {
	Backend       string `mapstructure:"backend"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresURL   string `mapstructure:"postgres_url"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type SkyScrapper struct {
	APIKey            string  `mapstructure:"api_key"`
	Host              string  `mapstructure:"host"`
	BaseURL           string  `mapstructure:"base_url"`
	Currency          string  `mapstructure:"currency"`
	Market            string  `mapstructure:"market"`
	CountryCode       string  `mapstructure:"country_code"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type Auth struct {
	SessionDays        int    `mapstructure:"session_days"`
	Secret             string `mapstructure:"secret"`
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	SignInPerMinute    int    `mapstructure:"signin_per_minute"`
}

type Pricing struct {
	Timezone string `mapstructure:"timezone"`
}

type Log struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Config is the full application configuration.
type Config struct {
	Server      Server      `mapstructure:"server"`
	Storage     Storage     `mapstructure:"storage"`
	Airports    Airports    `mapstructure:"airports"`
	Store       Store       `mapstructure:"store"`
	SkyScrapper SkyScrapper `mapstructure:"skyscrapper"`
	Auth        Auth        `mapstructure:"auth"`
	Pricing     Pricing     `mapstructure:"pricing"`
	Log         Log         `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("storage.dir", "data")
	v.SetDefault("airports.file", "data/complete_airports_data.json")
	v.SetDefault("store.backend", StoreFile)
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.mongo_database", "flylow")
	v.SetDefault("skyscrapper.api_key", "")
	v.SetDefault("skyscrapper.host", "sky-scrapper.p.rapidapi.com")
	v.SetDefault("skyscrapper.base_url", "")
	v.SetDefault("skyscrapper.currency", "EUR")
	v.SetDefault("skyscrapper.market", "en-GB")
	v.SetDefault("skyscrapper.country_code", "IE")
	v.SetDefault("skyscrapper.requests_per_second", 0)
	v.SetDefault("auth.session_days", 30)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.google_client_secret", "")
	v.SetDefault("auth.signin_per_minute", 10)
	v.SetDefault("pricing.timezone", "Local")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads configuration. configFile may be empty; envFile is loaded when it exists.
func Load(configFile, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		} else if err == nil {
			log.Printf("[config] loaded environment from %s", envFile)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
		log.Printf("[config] using %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// comma-separated env values arrive as a single element
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks required settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SkyScrapper.APIKey) == "" {
		return ErrAPIKeyRequired
	}
	switch c.Store.Backend {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			return ErrPostgresURLRequired
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return ErrMongoURIRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreBackend, c.Store.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves pricing.timezone; "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Pricing.Timezone)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("pricing.timezone: %w", err)
	}
	return loc, nil
}

// SessionDuration converts auth.session_days.
func (c Config) SessionDuration() time.Duration {
	if c.Auth.SessionDays <= 0 {
		return 0
	}
	return time.Duration(c.Auth.SessionDays) * 24 * time.Hour
}

// SQLitePath defaults to favorites.db inside storage.dir.
func (c Config) SQLitePath() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join(c.Storage.Dir, "favorites.db")
}
