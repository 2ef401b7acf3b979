package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	// ErrLoadConfig wraps failures reading or decoding configuration sources.
	ErrLoadConfig = errors.New("load config")
	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the flightlog runtime configuration.
type Config struct {
	APIURL         string        `koanf:"api_url"`
	APIToken       string        `koanf:"api_token"`
	PageLimit      int           `koanf:"page_limit"`
	Environment    string        `koanf:"environment"`
	DocumentsDir   string        `koanf:"documents_dir"`
	DownloadsDir   string        `koanf:"downloads_dir"`
	PublicBaseURL  string        `koanf:"public_base_url"`
	OpenCommand    string        `koanf:"open_command"`
	ListenAddr     string        `koanf:"listen_addr"`
	LogDir         string        `koanf:"log_dir"`
	LogLevel       string        `koanf:"log_level"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

const (
	// EnvPrefix prefixes every environment override, e.g. FLIGHTLOG_PAGE_LIMIT.
	EnvPrefix = "FLIGHTLOG_"
	// EnvConfigPath names the config file when no path is given.
	EnvConfigPath = EnvPrefix + "CONFIG"

	defaultConfigPath     = "~/.config/flightlog/config.toml"
	defaultAPIURL         = "https://api.flightbook.ch"
	defaultPageLimit      = 20
	defaultEnvironment    = "native"
	defaultDocumentsDir   = "~/Documents/flightlog"
	defaultDownloadsDir   = "~/Downloads"
	defaultPublicBaseURL  = "https://m.flightbook.ch"
	defaultOpenCommand    = "xdg-open"
	defaultListenAddr     = "127.0.0.1:8321"
	defaultLogDir         = "~/.local/share/flightlog"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 10 * time.Second
)

// Default returns the built-in configuration with unexpanded paths.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		PageLimit:      defaultPageLimit,
		Environment:    defaultEnvironment,
		DocumentsDir:   defaultDocumentsDir,
		DownloadsDir:   defaultDownloadsDir,
		PublicBaseURL:  defaultPublicBaseURL,
		OpenCommand:    defaultOpenCommand,
		ListenAddr:     defaultListenAddr,
		LogDir:         defaultLogDir,
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load layers defaults, the TOML file at path and FLIGHTLOG_* environment
// variables, in increasing precedence. An empty path falls back to
// $FLIGHTLOG_CONFIG and then ~/.config/flightlog/config.toml. A missing file
// is not an error.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(EnvConfigPath)
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	k := koanf.New(".")
	if _, err := os.Stat(resolved); err == nil {
		if err := k.Load(file.Provider(resolved), Parser()); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrLoadConfig, resolved, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: stat %s: %w", ErrLoadConfig, resolved, err)
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %w", ErrLoadConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %w", ErrLoadConfig, err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize trims values, restores defaults for blanks and expands paths.
func (c *Config) normalize() error {
	def := Default()
	for _, f := range []struct {
		value *string
		def   string
	}{
		{&c.APIURL, def.APIURL},
		{&c.Environment, def.Environment},
		{&c.DocumentsDir, def.DocumentsDir},
		{&c.DownloadsDir, def.DownloadsDir},
		{&c.PublicBaseURL, def.PublicBaseURL},
		{&c.OpenCommand, def.OpenCommand},
		{&c.ListenAddr, def.ListenAddr},
		{&c.LogDir, def.LogDir},
		{&c.LogLevel, def.LogLevel},
	} {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			*f.value = f.def
		}
	}
	c.APIToken = strings.TrimSpace(c.APIToken)
	c.Environment = strings.ToLower(c.Environment)
	c.LogLevel = strings.ToLower(c.LogLevel)

	var err error
	if c.DocumentsDir, err = expandPath(c.DocumentsDir); err != nil {
		return fmt.Errorf("%w: documents_dir: %w", ErrInvalidConfig, err)
	}
	if c.DownloadsDir, err = expandPath(c.DownloadsDir); err != nil {
		return fmt.Errorf("%w: downloads_dir: %w", ErrInvalidConfig, err)
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("%w: log_dir: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks value ranges. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api_url %q is not an absolute URL", c.APIURL))
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("public_base_url %q is not an absolute URL", c.PublicBaseURL))
	}
	if c.PageLimit <= 0 {
		problems = append(problems, fmt.Sprintf("page_limit must be positive, got %d", c.PageLimit))
	}
	switch c.Environment {
	case "native", "web":
	default:
		problems = append(problems, fmt.Sprintf("environment %q must be native or web", c.Environment))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LogPath returns the application log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/flightlog.log")
	}
	return filepath.Join(c.LogDir, "flightlog.log")
}

// DefaultPath returns the expanded default config file location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
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
