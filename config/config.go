package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/notify"
	"github.com/kilianp07/fleetops/core/simulation/runlog"
)

type Config struct {
	HTTP    HTTPConfig           `json:"http"`
	Storage factory.ModuleConfig `json:"storage"`
	Auth    AuthConfig           `json:"auth"`
	Import  ImportConfig         `json:"import"`
	Metrics metrics.Config       `json:"metrics"`
	Notify  notify.Config        `json:"notify"`
	RunLog  runlog.Config        `json:"run_log"`
	Sentry  SentryConfig         `json:"sentry"`
}

// Load reads the configuration file at path, when given, then applies
// environment overrides such as K_HTTP__ADDR=:8080.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.applyDeploymentEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDeploymentEnv honours the plain PORT, FRONTEND_URL and JWT_SECRET
// variables set by common hosting platforms when no explicit value exists.
func (c *Config) applyDeploymentEnv() {
	if p := os.Getenv("PORT"); p != "" && c.HTTP.Addr == "" {
		c.HTTP.Addr = ":" + p
	}
	if u := os.Getenv("FRONTEND_URL"); u != "" && len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{u}
	}
	if s := os.Getenv("JWT_SECRET"); s != "" && c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = s
	}
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	c.Auth.SetDefaults()
	c.Import.SetDefaults()
	c.Metrics.SetDefaults()
	c.Notify.SetDefaults()
	c.RunLog.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Import.Validate(); err != nil {
		return err
	}
	return c.RunLog.Validate()
}
