package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `http:
  addr: ":8080"
  request_timeout: "5s"
  cors_origins: ["https://ops.example.com"]
storage:
  type: "sqlite"
  conf:
    dsn: "fleet.db"
auth:
  jwt_secret: "s3cret"
  token_ttl: "12h"
import:
  dir: "seed"
  load_on_start: true
metrics:
  sinks:
    - type: "prometheus"
notify:
  timeout: "3s"
  sinks:
    - type: "mqtt"
      conf:
        broker: "tcp://localhost:1883"
  breaker:
    max_failures: 2
run_log:
  backend: "jsonl"
  path: "runs.log"
sentry:
  dsn: ""
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"http.addr", cfg.HTTP.Addr, ":8080"},
		{"http.request_timeout", cfg.HTTP.RequestTimeout, 5 * time.Second},
		{"http.read_timeout default", cfg.HTTP.ReadTimeout, 15 * time.Second},
		{"http.cors", len(cfg.HTTP.CORSOrigins) == 1 && cfg.HTTP.CORSOrigins[0] == "https://ops.example.com", true},
		{"storage.type", cfg.Storage.Type, "sqlite"},
		{"storage.dsn", cfg.Storage.Conf["dsn"], "fleet.db"},
		{"auth.jwt_secret", cfg.Auth.JWTSecret, "s3cret"},
		{"auth.token_ttl", cfg.Auth.TokenTTL, 12 * time.Hour},
		{"auth.bcrypt_cost", cfg.Auth.BcryptCost, 10},
		{"import.dir", cfg.Import.Dir, "seed"},
		{"import.load_on_start", cfg.Import.LoadOnStart, true},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "prometheus", true},
		{"metrics.path", cfg.Metrics.Path, "/metrics"},
		{"notify.timeout", cfg.Notify.Timeout, 3 * time.Second},
		{"notify.sink", cfg.Notify.Sinks[0].Type, "mqtt"},
		{"notify.breaker.max_failures", cfg.Notify.Breaker.MaxFailures, uint32(2)},
		{"notify.breaker.open_timeout", cfg.Notify.Breaker.OpenTimeout, 30 * time.Second},
		{"run_log.backend", cfg.RunLog.Backend, "jsonl"},
		{"run_log.path", cfg.RunLog.Path, "runs.log"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":5000" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage = %q", cfg.Storage.Type)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Import.Dir != "data" || cfg.Import.LoadOnStart {
		t.Errorf("import = %+v", cfg.Import)
	}
	if cfg.RunLog.Backend != "none" {
		t.Errorf("run_log.backend = %q", cfg.RunLog.Backend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("K_HTTP__ADDR", ":9999")
	t.Setenv("K_AUTH__TOKEN_TTL", "2h")
	t.Setenv("K_STORAGE__TYPE", "postgres")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Storage.Type != "postgres" {
		t.Errorf("storage = %q", cfg.Storage.Type)
	}
}

func TestLoadDeploymentEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("FRONTEND_URL", "https://dash.example.com")
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":7000" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "https://dash.example.com" {
		t.Errorf("cors = %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(bad, []byte("x=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected unsupported format error")
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"run_log":{"backend":"redis"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected run_log validation error")
	}

	if err := os.WriteFile(path, []byte(`{"auth":{"bcrypt_cost":99}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected bcrypt cost error")
	}
}
