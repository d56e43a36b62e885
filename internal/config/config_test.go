package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	t.Setenv(key, "")
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestGetEnvDuration(t *testing.T) {
	const key = "TEST_DURATION"
	t.Setenv(key, "15")
	if got := getEnvDuration(key, time.Second); got != 15*time.Second {
		t.Fatalf("plain seconds: got %v", got)
	}
	t.Setenv(key, "2m")
	if got := getEnvDuration(key, time.Second); got != 2*time.Minute {
		t.Fatalf("duration string: got %v", got)
	}
	t.Setenv(key, "soon")
	if got := getEnvDuration(key, time.Second); got != time.Second {
		t.Fatalf("invalid value should fall back, got %v", got)
	}
}

func TestGetEnvIntAndBool(t *testing.T) {
	t.Setenv("TEST_INT", "5")
	t.Setenv("TEST_BOOL", "true")
	if got := getEnvInt("TEST_INT", 3); got != 5 {
		t.Fatalf("getEnvInt = %d", got)
	}
	if !getEnvBool("TEST_BOOL", false) {
		t.Fatalf("getEnvBool = false")
	}
	t.Setenv("TEST_INT", "x")
	if got := getEnvInt("TEST_INT", 3); got != 3 {
		t.Fatalf("invalid int should fall back, got %d", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("APP_PORT", "")
	t.Setenv("NEWS_CRON_SPEC", "")
	t.Setenv("PRICE_RETRY_DELAY", "")

	cfg := Load()
	if cfg.AppPort != "9000" || cfg.NewsCronSpec != "@every 5m" || cfg.PriceCronSpec != "@every 60s" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PriceRetryDelay != 10*time.Second || cfg.HTTPMaxRetries != 3 || cfg.HTTPTimeout != 0 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coinpulse.yaml")
	content := `
appPort: "7000"
newsCronSpec: "@every 10m"
cryptoPanicToken: "from-file"
endpoints:
  coinGecko: "http://localhost:1234/simple/price"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv("APP_PORT", "1234")
	t.Setenv("APP_BASIC_USER", "user")
	t.Setenv("APP_BASIC_PASS", "pass")
	t.Setenv("NEWS_CRON_SPEC", "")
	t.Setenv("CRYPTOPANIC_TOKEN", "")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("BasicAuthUser/Pass not loaded correctly: %+v", cfg)
	}
	if cfg.NewsCronSpec != "@every 10m" || cfg.CryptoPanicToken != "from-file" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Endpoints.CoinGecko != "http://localhost:1234/simple/price" {
		t.Fatalf("endpoints not applied: %+v", cfg.Endpoints)
	}
}
