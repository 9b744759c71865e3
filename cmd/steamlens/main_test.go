package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
name: steamlens
environment: production
logging:
  level: warn
caller:
  caches:
    api:
      ttl: 1m
  retry:
    max_retries: 4
    base_delay: 100ms
server:
  port: 9090
`)
	t.Setenv("STEAM_API_KEY", "secret")
	t.Setenv("STEAM_ID", "7656")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Steam.APIKey != "secret" || cfg.Steam.SteamID != "7656" {
		t.Errorf("expected credentials from the environment, got %+v", cfg.Steam)
	}
	if cfg.Caller.Caches.API.TTL != time.Minute || cfg.Caller.Caches.API.MaxSize != 200 {
		t.Errorf("unexpected api cache config %+v", cfg.Caller.Caches.API)
	}
	if cfg.Caller.Retry.MaxRetries != 4 || cfg.Caller.Retry.BaseDelay != 100*time.Millisecond {
		t.Errorf("unexpected retry config %+v", cfg.Caller.Retry)
	}
	if cfg.Server.Port != 9090 || cfg.Logging.Level != "warn" || cfg.Debug {
		t.Errorf("unexpected service config %+v / %+v", cfg.Server, cfg.ServiceConfig)
	}
	if cfg.HTTP.BaseURL != "https://api.steampowered.com" || !strings.HasPrefix(cfg.HTTP.UserAgent, "steamlens/") {
		t.Errorf("unexpected http config %+v", cfg.HTTP)
	}
}

func TestLoadConfigRetryPolicy(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantRetries int
		wantMaxWait time.Duration
	}{
		{"defaults", "name: steamlens\n", 2, 2 * time.Second},
		{"explicit zeros", "caller:\n  retry:\n    max_retries: 0\n  token_wait:\n    max_wait: 0s\n", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeConfig(t, tt.body))
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.Caller.Retry.MaxRetries != tt.wantRetries {
				t.Errorf("max_retries = %d, want %d", cfg.Caller.Retry.MaxRetries, tt.wantRetries)
			}
			if cfg.Caller.TokenWait.MaxWait != tt.wantMaxWait {
				t.Errorf("max_wait = %s, want %s", cfg.Caller.TokenWait.MaxWait, tt.wantMaxWait)
			}
		})
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"sample rate": "tracing:\n  sample_rate: 2\n",
		"port":        "server:\n  port: 70000\n",
		"environment": "environment: moon\n",
		"log level":   "logging:\n  level: loud\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "dev") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestSessionCommand(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "GetNumberOfCurrentPlayers") {
			_, _ = w.Write([]byte(`{"response":{"player_count":42,"result":1}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	path := writeConfig(t, `
name: steamlens
logging:
  level: error
http:
  base_url: `+upstream.URL+`
caller:
  retry:
    max_retries: 0
    base_delay: 1ms
`)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"session", "570", "--config", path, "--stats"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{`"current_players": 42`, `"appid": 570`, `"stats"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %s in output:\n%s", want, out.String())
		}
	}
}

func TestSessionCommandRejectsBadAppID(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"session", "dota"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for a non-numeric appid")
	}
}
