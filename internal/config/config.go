// Package config loads and validates the shared configuration for the
// web server, the bot and the maintenance daemon. All three processes
// read the same file; a config that fails schema validation aborts
// startup.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/qri-io/jsonschema"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr" json:"addr"`
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	DatabasePath    string        `yaml:"database_path" json:"database_path"`
	PasswordPepper  string        `yaml:"password_pepper" json:"password_pepper"`
	TelegramToken   string        `yaml:"telegram_token" json:"telegram_token,omitempty"`
	PackageIndexURL string        `yaml:"package_index_url" json:"package_index_url"`
	DaemonInterval  time.Duration `yaml:"daemon_interval" json:"-"`
	JWTSecret       string        `yaml:"jwt_secret" json:"jwt_secret"`
	APITimeout      time.Duration `yaml:"timeout" json:"-"`
	StaticDir       string        `yaml:"static_dir" json:"static_dir,omitempty"`
	LDAPURL         string        `yaml:"ldap_url" json:"ldap_url,omitempty"`
}

// configSchema is the fixed startup contract. Required keys missing or
// malformed keys abort the process before any component starts.
const configSchema = `{
	"type": "object",
	"required": ["database_path", "base_url", "password_pepper"],
	"properties": {
		"addr":              {"type": "string", "minLength": 1},
		"base_url":          {"type": "string", "format": "uri", "minLength": 1},
		"database_path":     {"type": "string", "minLength": 1},
		"password_pepper":   {"type": "string", "minLength": 1},
		"telegram_token":    {"type": "string"},
		"package_index_url": {"type": "string", "format": "uri"},
		"jwt_secret":        {"type": "string"},
		"static_dir":        {"type": "string"},
		"ldap_url":          {"type": "string"}
	}
}`

func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("PAKREQ_ADDR", ":8080"),
		BaseURL:         getEnv("PAKREQ_BASE_URL", ""),
		DatabasePath:    getEnv("PAKREQ_DATABASE_PATH", ""),
		PasswordPepper:  getEnv("PAKREQ_PASSWORD_PEPPER", ""),
		TelegramToken:   getEnv("PAKREQ_TELEGRAM_TOKEN", ""),
		PackageIndexURL: getEnv("PAKREQ_PACKAGE_INDEX_URL", "https://packages.aosc.io"),
		JWTSecret:       getEnv("PAKREQ_JWT_SECRET", ""),
		DaemonInterval:  1800 * time.Second,
		APITimeout:      15 * time.Second,
		StaticDir:       "static",
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := cfg.Validate(context.Background()); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the config against the fixed schema.
func (c *Config) Validate(ctx context.Context) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(configSchema), rs); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	keyErrs, err := rs.ValidateBytes(ctx, doc)
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if len(keyErrs) > 0 {
		msg := ""
		for i, ke := range keyErrs {
			if i > 0 {
				msg += "; "
			}
			msg += fmt.Sprintf("%s: %s", ke.PropertyPath, ke.Message)
		}
		return fmt.Errorf("invalid config: %s", msg)
	}

	if c.DaemonInterval <= 0 {
		return fmt.Errorf("invalid config: daemon_interval must be positive")
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
