package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is the environment variable prefix for configuration
// overrides; "__" is the hierarchy separator, e.g.
// APP__PROXY__CONNECT_TIMEOUT.
const envPrefix = "APP__"

// LoadConfig loads configuration from a YAML file at path, applies
// default values, validates the result, and returns it. path may be
// empty, in which case only defaults apply.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from the YAML file at
// path (read from CONFIG_PATH if path is empty) and applies environment
// variable overrides prefixed APP__ with "__" as the hierarchy
// separator, e.g. APP__SERVER__PORT, APP__AUTH__API_PASSWORD. Environment
// variables always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies APP__-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv(envPrefix + "SERVER__HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv(envPrefix + "SERVER__PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = i
		}
	}
	if val := os.Getenv(envPrefix + "SERVER__WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.Workers = i
		}
	}

	if val := os.Getenv(envPrefix + "PROXY__CONNECT_TIMEOUT"); val != "" {
		if d, err := parseSecondsOrDuration(val); err == nil {
			cfg.Proxy.ConnectTimeout = d
		}
	}
	if val := os.Getenv(envPrefix + "PROXY__BUFFER_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.BufferSize = i
		}
	}
	if val := os.Getenv(envPrefix + "PROXY__FOLLOW_REDIRECTS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Proxy.FollowRedirects = boolPtr(b)
		}
	}
	if val := os.Getenv(envPrefix + "PROXY__PROXY_URL"); val != "" {
		cfg.Proxy.ProxyURL = val
	}
	if val := os.Getenv(envPrefix + "PROXY__ALL_PROXY"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Proxy.AllProxy = b
		}
	}
	if val := os.Getenv(envPrefix + "PROXY__TRANSPORT_ROUTES"); val != "" {
		var routes map[string]RouteRuleConfig
		if err := json.Unmarshal([]byte(val), &routes); err != nil {
			return fmt.Errorf("invalid %sPROXY__TRANSPORT_ROUTES: %w", envPrefix, err)
		}
		cfg.Proxy.TransportRoutes = routes
	}

	if val := os.Getenv(envPrefix + "AUTH__API_PASSWORD"); val != "" {
		cfg.Auth.APIPassword = val
	}

	if val := os.Getenv(envPrefix + "TELEMETRY__LOGGING__LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(envPrefix + "TELEMETRY__LOGGING__FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv(envPrefix + "TELEMETRY__METRICS__ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv(envPrefix + "TELEMETRY__METRICS__PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}

	return nil
}

// parseSecondsOrDuration accepts either a bare integer (seconds, matching
// spec.md's "u64 sec" config keys) or a Go duration string like "30s".
func parseSecondsOrDuration(val string) (time.Duration, error) {
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(strings.TrimSpace(val))
}
