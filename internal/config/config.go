package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderCoinCap   = "coincap"
	ProviderCoinGecko = "coingecko"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	MarketProvider   string `yaml:"market_provider"`
	CoinCapBaseURL   string `yaml:"coincap_base_url"`
	CoinGeckoBaseURL string `yaml:"coingecko_base_url"`
	CoinGeckoAPIKey  string `yaml:"coingecko_api_key"`
	CORSProxyURL     string `yaml:"cors_proxy_url"`

	MinRequestIntervalMS int `yaml:"min_request_interval_ms"`
	MaxAttempts          int `yaml:"max_attempts"`
	BackoffBaseMS        int `yaml:"backoff_base_ms"`

	TopCoins    int    `yaml:"top_coins"`
	RSIPeriod   int    `yaml:"rsi_period"`
	RangeDays   int    `yaml:"range_days"`
	RefreshCron string `yaml:"refresh_cron"`

	RedisURL         string `yaml:"redis_url"`
	HistoryCacheSecs int    `yaml:"history_cache_secs"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	SSHPort          int    `yaml:"ssh_port"`
	SSHHostKeyPath   string `yaml:"ssh_host_key_path"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:             ":8080",
		MarketProvider:       ProviderCoinCap,
		CoinCapBaseURL:       "https://api.coincap.io/v2",
		CoinGeckoBaseURL:     "https://api.coingecko.com/api/v3",
		CORSProxyURL:         "https://api.allorigins.win/",
		MinRequestIntervalMS: 1250,
		MaxAttempts:          4,
		BackoffBaseMS:        1000,
		TopCoins:             20,
		RSIPeriod:            14,
		RangeDays:            7,
		RefreshCron:          "@every 10m",
		HistoryCacheSecs:     120,
		SSHPort:              23234,
		SSHHostKeyPath:       ".ssh/id_ed25519",
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_PATH (if any), then the environment.
func Load() *Config {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err != nil:
			log.Printf("Warning: could not read CONFIG_PATH=%q: %v", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Printf("Warning: could not parse %s: %v", path, err)
			}
		}
	}

	stringEnv("HTTP_ADDR", &cfg.HTTPAddr)
	stringEnv("MARKET_PROVIDER", &cfg.MarketProvider)
	stringEnv("COINCAP_BASE_URL", &cfg.CoinCapBaseURL)
	stringEnv("COINGECKO_BASE_URL", &cfg.CoinGeckoBaseURL)
	stringEnv("COINGECKO_API_KEY", &cfg.CoinGeckoAPIKey)
	stringEnv("REDIS_URL", &cfg.RedisURL)
	stringEnv("TELEGRAM_BOT_TOKEN", &cfg.TelegramBotToken)
	stringEnv("SSH_HOST_KEY_PATH", &cfg.SSHHostKeyPath)

	// An explicitly empty value disables these.
	if v, ok := os.LookupEnv("CORS_PROXY_URL"); ok {
		cfg.CORSProxyURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("REFRESH_CRON"); ok {
		cfg.RefreshCron = strings.TrimSpace(v)
	}

	intEnv("MIN_REQUEST_INTERVAL_MS", &cfg.MinRequestIntervalMS, 0)
	intEnv("MAX_ATTEMPTS", &cfg.MaxAttempts, 1)
	intEnv("BACKOFF_BASE_MS", &cfg.BackoffBaseMS, 0)
	intEnv("TOP_COINS", &cfg.TopCoins, 1)
	intEnv("RSI_PERIOD", &cfg.RSIPeriod, 1)
	intEnv("RANGE_DAYS", &cfg.RangeDays, 1)
	intEnv("HISTORY_CACHE_SECS", &cfg.HistoryCacheSecs, 0)
	intEnv("SSH_PORT", &cfg.SSHPort, 1)

	cfg.MarketProvider = strings.ToLower(strings.TrimSpace(cfg.MarketProvider))
	if cfg.MarketProvider != ProviderCoinCap && cfg.MarketProvider != ProviderCoinGecko {
		log.Printf("Warning: unsupported MARKET_PROVIDER=%q, defaulting to %s", cfg.MarketProvider, ProviderCoinCap)
		cfg.MarketProvider = ProviderCoinCap
	}
	if cfg.TopCoins < 1 || cfg.TopCoins > 250 {
		log.Printf("Warning: TOP_COINS=%d out of range, defaulting to 20", cfg.TopCoins)
		cfg.TopCoins = 20
	}
	if cfg.RSIPeriod < 1 || cfg.RSIPeriod > 200 {
		log.Printf("Warning: RSI_PERIOD=%d out of range, defaulting to 14", cfg.RSIPeriod)
		cfg.RSIPeriod = 14
	}
	if cfg.RangeDays < 1 || cfg.RangeDays > 365 {
		log.Printf("Warning: RANGE_DAYS=%d out of range, defaulting to 7", cfg.RangeDays)
		cfg.RangeDays = 7
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 4
	}

	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, history cache disabled")
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.CORSProxyURL == "" {
		log.Println("Warning: CORS_PROXY_URL empty, proxy fallback disabled")
	}

	return cfg
}

func stringEnv(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func intEnv(key string, dst *int, min int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		log.Printf("Warning: invalid %s=%q, keeping %d", key, v, *dst)
		return
	}
	*dst = n
}
