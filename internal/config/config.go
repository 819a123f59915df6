package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything epterm needs to reach the ElectroPhobia backend.
type Config struct {
	APIURL            string
	RequestTimeout    time.Duration
	Retries           int
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	SessionPath       string
	LogPath           string
}

const (
	defaultConfigPath        = "~/.config/epterm/config.toml"
	defaultSessionPath       = "~/.config/epterm/session.toml"
	defaultLogPath           = "~/.local/state/epterm/epterm.log"
	defaultAPIURL            = "http://localhost:5000/api"
	defaultRequestTimeout    = 15 * time.Second
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second

	// APIURLEnv is shared with the web frontend's .env file.
	APIURLEnv = "NEXT_PUBLIC_API_URL"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		APIURL:            defaultAPIURL,
		RequestTimeout:    defaultRequestTimeout,
		ReconnectAttempts: defaultReconnectAttempts,
		ReconnectDelay:    defaultReconnectDelay,
		SessionPath:       mustExpand(defaultSessionPath),
		LogPath:           mustExpand(defaultLogPath),
	}
}

// Load locates and parses the epterm config, falling back to defaults when missing.
// A .env file in the working directory is loaded first; NEXT_PUBLIC_API_URL from the
// environment wins over api_url in the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL            string `toml:"api_url"`
		RequestTimeout    string `toml:"request_timeout"`
		Retries           int    `toml:"retries"`
		ReconnectAttempts *int   `toml:"reconnect_attempts"`
		ReconnectDelay    string `toml:"reconnect_delay"`
		SessionPath       string `toml:"session_path"`
		LogPath           string `toml:"log_path"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ReconnectDelay, err = parseDuration("reconnect_delay", raw.ReconnectDelay, defaultReconnectDelay); err != nil {
		return Config{}, err
	}
	if raw.Retries > 0 {
		cfg.Retries = raw.Retries
	}
	if raw.ReconnectAttempts != nil && *raw.ReconnectAttempts >= 0 {
		cfg.ReconnectAttempts = *raw.ReconnectAttempts
	}
	if v := strings.TrimSpace(raw.SessionPath); v != "" {
		cfg.SessionPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = mustExpand(v)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// RealtimeURL derives the socket endpoint from the API base: same host, /api stripped.
func (c Config) RealtimeURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if base == "" {
		base = defaultAPIURL
	}
	return strings.TrimSuffix(base, "/api")
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(APIURLEnv)); v != "" {
		cfg.APIURL = v
	}
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse config %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse config %s: negative duration %q", key, trimmed)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
