package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, EnvPrefix) {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.PageLimit != defaultPageLimit {
		t.Fatalf("PageLimit = %d, want %d", cfg.PageLimit, defaultPageLimit)
	}
	if cfg.Environment != "native" {
		t.Fatalf("Environment = %q, want native", cfg.Environment)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %s, want %s", cfg.RequestTimeout, defaultRequestTimeout)
	}

	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if cfg.LogPath() != filepath.Join(wantLogDir, "flightlog.log") {
		t.Fatalf("LogPath = %q", cfg.LogPath())
	}
	if !strings.HasPrefix(cfg.DocumentsDir, home) {
		t.Fatalf("DocumentsDir = %q, want it under HOME %q", cfg.DocumentsDir, home)
	}
	if cfg.DownloadsDir != filepath.Join(home, "Downloads") {
		t.Fatalf("DownloadsDir = %q, want %q", cfg.DownloadsDir, filepath.Join(home, "Downloads"))
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolate(t)

	path := writeConfig(t, `
api_url = "  https://flightbook.example/api  "
api_token = " secret "
page_limit = 50
environment = "WEB"
documents_dir = "  ~/exports  "
request_timeout = "3s"
log_level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://flightbook.example/api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.APIToken != "secret" {
		t.Fatalf("APIToken = %q", cfg.APIToken)
	}
	if cfg.PageLimit != 50 {
		t.Fatalf("PageLimit = %d, want 50", cfg.PageLimit)
	}
	if cfg.Environment != "web" {
		t.Fatalf("Environment = %q, want web", cfg.Environment)
	}
	if cfg.DocumentsDir != filepath.Join(home, "exports") {
		t.Fatalf("DocumentsDir = %q", cfg.DocumentsDir)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("RequestTimeout = %s, want 3s", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
page_limit = 50
listen_addr = "127.0.0.1:9000"
`)
	t.Setenv("FLIGHTLOG_PAGE_LIMIT", "30")
	t.Setenv("FLIGHTLOG_API_TOKEN", "from-env")
	t.Setenv("FLIGHTLOG_REQUEST_TIMEOUT", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PageLimit != 30 {
		t.Fatalf("PageLimit = %d, want 30", cfg.PageLimit)
	}
	if cfg.APIToken != "from-env" {
		t.Fatalf("APIToken = %q", cfg.APIToken)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.RequestTimeout != 250*time.Millisecond {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
}

func TestLoad_ConfigPathFromEnvironment(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `listen_addr = "0.0.0.0:1234"`)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:1234" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
api_url = "   "
log_dir = ""
environment = ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.Environment != defaultEnvironment {
		t.Fatalf("Environment = %q", cfg.Environment)
	}
	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `api_url = [`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !errors.Is(err, ErrLoadConfig) {
		t.Fatalf("Load error = %v, want ErrLoadConfig", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "page limit", body: `page_limit = 0`, want: "page_limit"},
		{name: "environment", body: `environment = "desktop"`, want: "environment"},
		{name: "api url", body: `api_url = "not a url"`, want: "api_url"},
		{name: "log level", body: `log_level = "loud"`, want: "log_level"},
		{name: "timeout", env: map[string]string{"FLIGHTLOG_REQUEST_TIMEOUT": "-1s"}, want: "request_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeConfig(t, tt.body)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Load error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_BadEnvironmentValue(t *testing.T) {
	isolate(t)
	t.Setenv("FLIGHTLOG_PAGE_LIMIT", "many")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, ErrLoadConfig) {
		t.Fatalf("Load error = %v, want ErrLoadConfig", err)
	}
}

func TestParser_RoundTrip(t *testing.T) {
	p := Parser()
	out, err := p.Unmarshal([]byte("page_limit = 5\n[ui]\ntheme = \"dark\"\n"))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	ui, ok := out["ui"].(map[string]interface{})
	if !ok || ui["theme"] != "dark" {
		t.Fatalf("nested table = %#v", out["ui"])
	}
	b, err := p.Marshal(map[string]interface{}{"page_limit": 5})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), "page_limit = 5") {
		t.Fatalf("Marshal = %q", b)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenLogDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/flightlog.log")) {
		t.Fatalf("LogPath = %q, want it to end with /flightlog.log", got)
	}
}
