// Package config resolves the device configuration from the JSON config
// file, the environment and built-in defaults, in that order of precedence
// (environment wins).
package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultAPIBase is used when neither the config file nor the
	// environment names an API endpoint.
	DefaultAPIBase = "http://localhost:3001/api"

	// DefaultPollInterval is how often the service polls the API.
	DefaultPollInterval = 60 * time.Second
)

// ErrNoToken is returned when no device token could be resolved from any
// source. The caller should point the user at the setup flow.
var ErrNoToken = errors.New("config: device token not found")

// Config is the resolved runtime configuration.
type Config struct {
	DeviceToken  string
	APIBase      string
	PollInterval time.Duration
}

type fileConfig struct {
	DeviceToken string `json:"device_token"`
	APIURL      string `json:"api_url"`
}

// Load reads the config file at path (missing file is not an error) and
// applies environment overrides: EINK_DEVICE_TOKEN, EINK_API_BASE and
// EINK_POLL_INTERVAL (seconds).
func Load(path string) (Config, error) {
	cfg := Config{
		APIBase:      DefaultAPIBase,
		PollInterval: DefaultPollInterval,
	}

	if b, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := json.Unmarshal(b, &fc); err != nil {
			return Config{}, err
		}
		if fc.DeviceToken != "" {
			cfg.DeviceToken = fc.DeviceToken
		}
		if fc.APIURL != "" {
			cfg.APIBase = fc.APIURL
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	if tok := os.Getenv("EINK_DEVICE_TOKEN"); tok != "" {
		cfg.DeviceToken = tok
	}
	if base := os.Getenv("EINK_API_BASE"); base != "" {
		cfg.APIBase = base
	}
	if s := os.Getenv("EINK_POLL_INTERVAL"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			cfg.PollInterval = time.Duration(secs) * time.Second
		}
	}

	if cfg.DeviceToken == "" {
		return cfg, ErrNoToken
	}
	return cfg, nil
}
