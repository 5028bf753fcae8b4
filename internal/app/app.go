// Package app wires the load pipeline shared by the server, TUI and SSH
// binaries: limiter, requester, market provider, RSI service and board.
package app

import (
	"log"
	"net/http"
	"time"

	"rsi-board/internal/board"
	"rsi-board/internal/config"
	"rsi-board/internal/domain"
	"rsi-board/internal/provider"
	"rsi-board/internal/service"

	"go.opentelemetry.io/otel/trace"
)

const userAgent = "rsi-board/1.0"

type App struct {
	Board   *board.Board
	Service *service.RSIService
	// Provider is the market client selected by MARKET_PROVIDER.
	Provider service.MarketProvider
}

// New builds the pipeline. A nil redisClient (untyped) disables the history cache.
func New(tracer trace.Tracer, cfg *config.Config, redisClient service.RedisClient) *App {
	limiter := provider.NewRateLimiter(time.Duration(cfg.MinRequestIntervalMS) * time.Millisecond)

	reqCfg := provider.RequesterConfig{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: time.Duration(cfg.BackoffBaseMS) * time.Millisecond,
		ProxyURL:    cfg.CORSProxyURL,
		UserAgent:   userAgent,
	}

	var market service.MarketProvider
	switch cfg.MarketProvider {
	case config.ProviderCoinGecko:
		if cfg.CoinGeckoAPIKey != "" {
			reqCfg.Header = http.Header{"x-cg-demo-api-key": []string{cfg.CoinGeckoAPIKey}}
		}
		market = provider.NewCoinGeckoProvider(tracer, provider.NewRequester(nil, limiter, reqCfg), cfg.CoinGeckoBaseURL)
	default:
		market = provider.NewCoinCapProvider(tracer, provider.NewRequester(nil, limiter, reqCfg), cfg.CoinCapBaseURL)
	}
	log.Printf("Market provider: %s (min interval %dms, %d attempts)", cfg.MarketProvider, cfg.MinRequestIntervalMS, cfg.MaxAttempts)

	var ttl time.Duration
	if redisClient != nil {
		ttl = time.Duration(cfg.HistoryCacheSecs) * time.Second
	}
	b := board.New(InitialConfig(cfg))
	svc := service.NewRSIService(tracer, market, b, redisClient, service.Options{
		TopCoins:        cfg.TopCoins,
		HistoryCacheTTL: ttl,
	})

	return &App{Board: b, Service: svc, Provider: market}
}

// InitialConfig is the load configuration used at startup.
func InitialConfig(cfg *config.Config) domain.LoadConfig {
	return domain.LoadConfig{Period: cfg.RSIPeriod, RangeDays: cfg.RangeDays}
}
