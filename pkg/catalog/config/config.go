// Package config loads process-wide settings from the environment,
// an optional .env file and an optional catalog.yaml.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix is prepended to every environment variable, e.g. CATALOG_PORT
const EnvPrefix = "CATALOG"

// Config holds settings established at startup and read-only thereafter
type Config struct {
	Port                 string
	DBPath               string
	JWTPublicKey         string // PEM encoded RSA public key
	PlatformDomain       string // e.g. catalog.app; tenants live at <slug>.catalog.app
	CORSOrigins          []string
	SessionHorizonMonths int // how far ahead open-ended class templates are expanded
	LogLevel             string
	Env                  string
}

// Development reports whether the service runs with development defaults
func (c Config) Development() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "catalog.db")
	v.SetDefault("jwt_public_key", "")
	v.SetDefault("jwt_public_key_file", "")
	v.SetDefault("platform_domain", "")
	v.SetDefault("cors_origins", "")
	v.SetDefault("session_horizon_months", 3)
	v.SetDefault("log_level", "info")
	v.SetDefault("env", "production")
}

// Load reads configuration with precedence env > config file > defaults.
// A .env file in the working directory is loaded first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigName("catalog")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, pkgerrors.Wrap(err, "reading config file")
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:                 strings.TrimSpace(v.GetString("port")),
		DBPath:               strings.TrimSpace(v.GetString("db_path")),
		JWTPublicKey:         strings.TrimSpace(v.GetString("jwt_public_key")),
		PlatformDomain:       strings.ToLower(strings.TrimSpace(v.GetString("platform_domain"))),
		CORSOrigins:          SplitList(v.GetString("cors_origins")),
		SessionHorizonMonths: v.GetInt("session_horizon_months"),
		LogLevel:             strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		Env:                  strings.ToLower(strings.TrimSpace(v.GetString("env"))),
	}

	if cfg.JWTPublicKey == "" {
		if path := strings.TrimSpace(v.GetString("jwt_public_key_file")); path != "" {
			pem, err := os.ReadFile(path)
			if err != nil {
				return Config{}, pkgerrors.Wrap(err, "reading jwt_public_key_file")
			}
			cfg.JWTPublicKey = strings.TrimSpace(string(pem))
		}
	}
	// Keys passed through env vars often have literal \n sequences
	cfg.JWTPublicKey = strings.ReplaceAll(cfg.JWTPublicKey, `\n`, "\n")

	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var err error
	if c.Port == "" {
		err = multierr.Append(err, pkgerrors.New("port must not be empty"))
	}
	if c.DBPath == "" {
		err = multierr.Append(err, pkgerrors.New("db_path must not be empty"))
	}
	if c.SessionHorizonMonths <= 0 {
		err = multierr.Append(err, pkgerrors.Errorf("session_horizon_months must be positive, got %d", c.SessionHorizonMonths))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, pkgerrors.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	return err
}

// SplitList splits a comma-separated value, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
