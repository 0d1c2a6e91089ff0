package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device_config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{"device_token": "abc123", "api_url": "https://cal.example.com/api"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DeviceToken != "abc123" {
		t.Errorf("token = %q", cfg.DeviceToken)
	}
	if cfg.APIBase != "https://cal.example.com/api" {
		t.Errorf("api base = %q", cfg.APIBase)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("poll interval = %v", cfg.PollInterval)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"device_token": "abc123"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBase != DefaultAPIBase {
		t.Errorf("api base = %q, want default", cfg.APIBase)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"device_token": "filetoken", "api_url": "http://file"}`)
	t.Setenv("EINK_DEVICE_TOKEN", "envtoken")
	t.Setenv("EINK_API_BASE", "http://env")
	t.Setenv("EINK_POLL_INTERVAL", "120")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DeviceToken != "envtoken" || cfg.APIBase != "http://env" {
		t.Errorf("env should win: %+v", cfg)
	}
	if cfg.PollInterval != 120*time.Second {
		t.Errorf("poll interval = %v, want 2m", cfg.PollInterval)
	}
}

func TestLoadMissingFileNoToken(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestLoadMissingFileWithEnvToken(t *testing.T) {
	t.Setenv("EINK_DEVICE_TOKEN", "envtoken")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DeviceToken != "envtoken" {
		t.Errorf("token = %q", cfg.DeviceToken)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
