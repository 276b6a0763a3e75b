// Package config loads settings from a YAML file, a .env file and
// DAILIES_* environment variables, later sources winning.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dailies/internal/game"
)

// Environment variable names.
const (
	EnvDatabase       = "DAILIES_DB"
	EnvAPIURL         = "DAILIES_API_URL"
	EnvPuzzleProxyURL = "DAILIES_PUZZLE_PROXY_URL"
	EnvSessionToken   = "DAILIES_SESSION_TOKEN"
	EnvTimezone       = "DAILIES_TIMEZONE"
	EnvHTTPTimeout    = "DAILIES_HTTP_TIMEOUT"
	EnvProgressCap    = "DAILIES_PROGRESS_CAP"
	EnvServerAddr     = "DAILIES_SERVER_ADDR"
	EnvResultDSN      = "DAILIES_RESULT_DSN"
	EnvJWTSecret      = "DAILIES_JWT_SECRET"
	EnvUpstreamURL    = "DAILIES_UPSTREAM_URL"
)

// Config holds client and server settings.
type Config struct {
	// Database is the local SQLite file.
	Database string `yaml:"database"`
	// APIURL is the Remote Result Service base URL. Empty means offline.
	APIURL string `yaml:"api_url"`
	// PuzzleProxyURL is a URL template with {kind} and {date} tried before
	// the Result Service's own proxy.
	PuzzleProxyURL string `yaml:"puzzle_proxy_url"`
	// SessionToken overrides the token saved by login.
	SessionToken string        `yaml:"session_token"`
	Timezone     string        `yaml:"timezone"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	ProgressCap  int           `yaml:"progress_cap"`
	Server       ServerConfig  `yaml:"server"`
}

// ServerConfig configures the reference Result Service.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	DSN       string `yaml:"dsn"`
	JWTSecret string `yaml:"jwt_secret"`
	// Upstream is the puzzle feed URL template.
	Upstream string `yaml:"upstream"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database:    defaultDatabase(),
		Timezone:    game.ReferenceZone,
		HTTPTimeout: 10 * time.Second,
		ProgressCap: 14,
		Server: ServerConfig{
			Addr: ":8080",
			DSN:  "dailies-results.db",
		},
	}
}

func defaultDatabase() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dailies.db"
	}
	return filepath.Join(home, ".dailies", "dailies.db")
}

// DefaultPath is where the config file is looked for when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dailies", "config.yaml")
}

// Load builds the configuration. An empty path means DefaultPath, which
// may be missing; an explicit path must exist. envFiles default to .env
// in the working directory and may be missing.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	required := path != ""
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			slog.Debug("no config file", "path", path)
		}
	}

	dotenv, err := readDotenv(envFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func readDotenv(files []string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	out := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no .env file", "path", f)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvDatabase:       &c.Database,
		EnvAPIURL:         &c.APIURL,
		EnvPuzzleProxyURL: &c.PuzzleProxyURL,
		EnvSessionToken:   &c.SessionToken,
		EnvTimezone:       &c.Timezone,
		EnvServerAddr:     &c.Server.Addr,
		EnvResultDSN:      &c.Server.DSN,
		EnvJWTSecret:      &c.Server.JWTSecret,
		EnvUpstreamURL:    &c.Server.Upstream,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvHTTPTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHTTPTimeout, err)
		}
		c.HTTPTimeout = d
	}
	if v, ok := lookup(EnvProgressCap); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProgressCap, err)
		}
		c.ProgressCap = n
	}
	return nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, fmt.Errorf("database path is required"))
	}
	if _, err := game.LoadZone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.APIURL != "" {
		if err := checkURL(c.APIURL); err != nil {
			errs = append(errs, fmt.Errorf("api_url: %w", err))
		}
	}
	if c.PuzzleProxyURL != "" && !strings.Contains(c.PuzzleProxyURL, "{date}") {
		errs = append(errs, fmt.Errorf("puzzle_proxy_url must contain {date}"))
	}
	if c.Server.Upstream != "" && !strings.Contains(c.Server.Upstream, "{date}") {
		errs = append(errs, fmt.Errorf("server.upstream must contain {date}"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive"))
	}
	if c.ProgressCap <= 0 {
		errs = append(errs, fmt.Errorf("progress_cap must be positive"))
	}
	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Location returns the configured puzzle time zone.
func (c *Config) Location() (*time.Location, error) {
	return game.LoadZone(c.Timezone)
}
