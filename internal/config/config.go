package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	StoreDriver string

	BcryptCost int

	LogLevel  string
	LogFormat string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

// Production reports whether destructive development endpoints must be refused.
func (c Config) Production() bool {
	return c.Env == EnvProduction
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                  strings.ToLower(getenv("APP_ENV", EnvDevelopment)),
		HTTPAddr:             getenv("HTTP_ADDR", ""),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		StoreDriver:          strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogFormat:            strings.ToLower(getenv("LOG_FORMAT", "json")),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":" + getenv("PORT", "3000")
	}

	var err error
	if cfg.BcryptCost, err = getint("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, errors.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.DBMaxOpenConns, err = getint("DB_MAX_OPEN_CONNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxIdleConns, err = getint("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.DBConnMaxLifetime, err = time.ParseDuration(getenv("DB_CONN_MAX_LIFETIME", "30m")); err != nil {
		return Config{}, errors.Wrap(err, "invalid DB_CONN_MAX_LIFETIME")
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("missing env: DATABASE_URL")
		}
	case DriverMemory:
		if cfg.Production() {
			return Config{}, errors.New("memory store is not allowed in production")
		}
	default:
		return Config{}, errors.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getint(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}
