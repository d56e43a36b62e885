package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "COINPULSE_CONFIG"

type Config struct {
	AppPort  string `yaml:"appPort"`
	LogLevel string `yaml:"logLevel"`

	// 全站 Basic Auth，两者都配置时启用
	BasicAuthUser string `yaml:"basicAuthUser"`
	BasicAuthPass string `yaml:"basicAuthPass"`

	NewsCronSpec    string        `yaml:"newsCronSpec"`
	PriceCronSpec   string        `yaml:"priceCronSpec"`
	PriceRetryDelay time.Duration `yaml:"priceRetryDelay"`

	// HTTPTimeout 为 0 时不限制单次请求时长
	HTTPTimeout    time.Duration `yaml:"httpTimeout"`
	HTTPMaxRetries int           `yaml:"httpMaxRetries"`

	CryptoCompareAPIKey string `yaml:"cryptoCompareApiKey"`
	RSS2JSONAPIKey      string `yaml:"rss2jsonApiKey"`
	CryptoPanicToken    string `yaml:"cryptoPanicToken"`
	// CoinDeskDirectRSS 直接解析 CoinDesk RSS，不走 rss2json
	CoinDeskDirectRSS bool `yaml:"coinDeskDirectRss"`

	Endpoints Endpoints `yaml:"endpoints"`
}

// Endpoints 外部接口地址，留空使用各适配器的默认值
type Endpoints struct {
	CryptoCompare string `yaml:"cryptoCompare"`
	RSS2JSON      string `yaml:"rss2json"`
	CoinDeskRSS   string `yaml:"coinDeskRss"`
	CryptoPanic   string `yaml:"cryptoPanic"`
	CoinGecko     string `yaml:"coinGecko"`
}

func defaults() *Config {
	return &Config{
		AppPort:         "9000",
		LogLevel:        "info",
		NewsCronSpec:    "@every 5m",
		PriceCronSpec:   "@every 60s",
		PriceRetryDelay: 10 * time.Second,
		HTTPTimeout:     0,
		HTTPMaxRetries:  3,
	}
}

// Load 默认值 → YAML 文件（COINPULSE_CONFIG）→ .env → 环境变量，后者覆盖前者
func Load() *Config {
	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Printf("config: cannot load %s: %v (using defaults)", path, err)
		}
	}

	// .env 不存在是常态，忽略错误；已存在的环境变量不会被覆盖
	_ = godotenv.Load()

	cfg.applyEnv()

	log.Printf("config loaded: port=%s news=%s prices=%s", cfg.AppPort, cfg.NewsCronSpec, cfg.PriceCronSpec)
	return cfg
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}

func (c *Config) applyEnv() {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.BasicAuthUser = getEnv("APP_BASIC_USER", c.BasicAuthUser)
	c.BasicAuthPass = getEnv("APP_BASIC_PASS", c.BasicAuthPass)

	c.NewsCronSpec = getEnv("NEWS_CRON_SPEC", c.NewsCronSpec)
	c.PriceCronSpec = getEnv("PRICE_CRON_SPEC", c.PriceCronSpec)
	c.PriceRetryDelay = getEnvDuration("PRICE_RETRY_DELAY", c.PriceRetryDelay)
	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout)
	c.HTTPMaxRetries = getEnvInt("HTTP_MAX_RETRIES", c.HTTPMaxRetries)

	c.CryptoCompareAPIKey = getEnv("CRYPTOCOMPARE_API_KEY", c.CryptoCompareAPIKey)
	c.RSS2JSONAPIKey = getEnv("RSS2JSON_API_KEY", c.RSS2JSONAPIKey)
	c.CryptoPanicToken = getEnv("CRYPTOPANIC_TOKEN", c.CryptoPanicToken)
	c.CoinDeskDirectRSS = getEnvBool("COINDESK_DIRECT_RSS", c.CoinDeskDirectRSS)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return b
}

// getEnvDuration 接受 Go duration（10s、1m）或纯数字秒
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
