// Package config resolves stockscan settings from defaults, a .env file, the
// environment and the OS keyring.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mstoykov/envconfig"
	"golang.org/x/net/http/httpguts"
)

// Capture backends.
const (
	BackendChrome = "chrome"
	BackendKernel = "kernel"
	BackendFile   = "file"
)

// Backends lists the accepted values for Config.Backend.
var Backends = []string{BackendChrome, BackendKernel, BackendFile}

// Where the pre-shared key came from.
const (
	KeySourceNone    = "none"
	KeySourceEnv     = "env"
	KeySourceKeyring = "keyring"
	KeySourceFlag    = "flag"
)

// Config holds every setting the commands use. Flags are applied on top by
// the caller after Load.
type Config struct {
	Endpoint  string        `envconfig:"STOCKSCAN_ENDPOINT"`
	KeyHeader string        `envconfig:"STOCKSCAN_KEY_HEADER"`
	Key       string        `envconfig:"STOCKSCAN_KEY"`
	Timeout   time.Duration `envconfig:"STOCKSCAN_TIMEOUT"`

	Backend           string `envconfig:"STOCKSCAN_BACKEND"`
	CDPURL            string `envconfig:"STOCKSCAN_CDP_URL"`
	ChromeUserDataDir string `envconfig:"STOCKSCAN_CHROME_USER_DATA_DIR"`
	KernelAPIKey      string `envconfig:"KERNEL_API_KEY"`
	KernelBrowserID   string `envconfig:"STOCKSCAN_KERNEL_BROWSER_ID"`

	DashboardURL string `envconfig:"STOCKSCAN_DASHBOARD_URL"`
	LogLevel     string `envconfig:"STOCKSCAN_LOG_LEVEL"`

	keySource string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		KeyHeader: "X-Internal-Key",
		Timeout:   60 * time.Second,
		Backend:   BackendChrome,
		LogLevel:  "warn",
		keySource: KeySourceNone,
	}
}

// Loader reads configuration. The zero value reads the process environment
// and ./.env, and falls back to the OS keyring for the key.
type Loader struct {
	// Lookup replaces os.LookupEnv.
	Lookup func(key string) (string, bool)
	// DotEnvFiles are read in order; a missing file is skipped.
	DotEnvFiles []string
	// SkipKeyring disables the keyring fallback.
	SkipKeyring bool
}

// Load resolves the configuration. Real environment variables take
// precedence over .env entries.
func (l Loader) Load() (Config, error) {
	cfg := Default()

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	files := l.DotEnvFiles
	if files == nil {
		files = []string{".env"}
	}

	dotenv := map[string]string{}
	for _, path := range files {
		vals, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return cfg, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range vals {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}

	if err := envconfig.Process("", &cfg, func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}

	switch {
	case cfg.Key != "":
		cfg.keySource = KeySourceEnv
	case !l.SkipKeyring:
		key, err := LoadKey()
		if err != nil && !errors.Is(err, ErrNoKey) {
			// An unavailable keyring (headless Linux, CI) is not fatal.
			slog.Debug("config: keyring unavailable", "error", err)
		}
		if key != "" {
			cfg.Key = key
			cfg.keySource = KeySourceKeyring
		}
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	return cfg, nil
}

// SetKey overrides the pre-shared key, e.g. from a flag.
func (c *Config) SetKey(key, source string) {
	c.Key = key
	c.keySource = source
	if key == "" {
		c.keySource = KeySourceNone
	}
}

// KeySource reports where the pre-shared key came from.
func (c Config) KeySource() string {
	if c.keySource == "" {
		return KeySourceNone
	}
	return c.keySource
}

// ValidateEndpoint checks the settings needed to talk to the analysis service.
func (c Config) ValidateEndpoint() error {
	if c.Endpoint == "" {
		return fmt.Errorf("no analysis endpoint configured: set STOCKSCAN_ENDPOINT or pass --endpoint")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid endpoint %q: scheme must be https or http", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", c.Endpoint)
	}
	if !httpguts.ValidHeaderFieldName(c.KeyHeader) {
		return fmt.Errorf("invalid key header name %q: must be an ASCII HTTP token", c.KeyHeader)
	}
	if c.Key != "" && !httpguts.ValidHeaderFieldValue(c.Key) {
		return fmt.Errorf("invalid key: contains characters not allowed in an HTTP header")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	return nil
}

// Validate checks everything a scan needs.
func (c Config) Validate() error {
	if err := c.ValidateEndpoint(); err != nil {
		return err
	}
	if err := c.ValidateBackend(); err != nil {
		return err
	}
	_, err := c.SlogLevel()
	return err
}

// ValidateBackend checks the capture backend settings.
func (c Config) ValidateBackend() error {
	switch c.Backend {
	case BackendChrome, BackendFile:
		return nil
	case BackendKernel:
		if c.KernelAPIKey == "" {
			return fmt.Errorf("the kernel backend requires KERNEL_API_KEY")
		}
		return nil
	default:
		return fmt.Errorf("unknown capture backend %q: use one of %s", c.Backend, strings.Join(Backends, ", "))
	}
}

// InsecureEndpoint reports whether the endpoint is plain http to a non-loopback host.
func (c Config) InsecureEndpoint() bool {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	return host != "localhost" && host != "127.0.0.1" && host != "::1"
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log level %q: use debug, info, warn or error", c.LogLevel)
	}
	return lvl, nil
}

// NewLogger returns a text logger at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := c.SlogLevel()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
