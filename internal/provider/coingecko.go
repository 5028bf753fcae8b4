package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rsi-board/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches the market-cap listing and market_chart ranges from the CoinGecko free API.
type CoinGeckoProvider struct {
	requester *Requester
	baseURL   string
	tracer    trace.Tracer
	now       func() time.Time
}

func NewCoinGeckoProvider(tracer trace.Tracer, requester *Requester, baseURL string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoProvider{
		requester: requester,
		baseURL:   strings.TrimRight(baseURL, "/"),
		tracer:    tracer,
		now:       time.Now,
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

// CoinGeckoGranularity is the sampling CoinGecko applies to a market_chart range:
// 5-minutely for 1 day, hourly up to 90 days, daily beyond.
func CoinGeckoGranularity(rangeDays int) string {
	switch {
	case rangeDays <= 1:
		return "5m"
	case rangeDays <= 90:
		return "1h"
	default:
		return "1d"
	}
}

// ListTopCoins returns the first limit coins ordered by market cap.
func (p *CoinGeckoProvider) ListTopCoins(ctx context.Context, limit int) ([]domain.Coin, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.list-top-coins")
	defer span.End()

	limit = clampLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	u := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=1",
		p.baseURL, limit)
	body, err := p.requester.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	var rows []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &ParseError{What: "markets", Err: err}
	}

	coins := make([]domain.Coin, 0, len(rows))
	for _, r := range rows {
		coins = append(coins, domain.Coin{ID: r.ID, Name: r.Name, Symbol: strings.ToUpper(r.Symbol)})
	}
	return uniqueCoins(coins), nil
}

// FetchHistory returns the USD price series of coinID over the last rangeDays.
func (p *CoinGeckoProvider) FetchHistory(ctx context.Context, coinID string, rangeDays int) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-history")
	defer span.End()

	start, end := window(p.now(), rangeDays)
	span.SetAttributes(
		attribute.String("coin_id", coinID),
		attribute.String("granularity", CoinGeckoGranularity(rangeDays)),
	)

	// market_chart/range takes seconds
	u := fmt.Sprintf("%s/coins/%s/market_chart/range?vs_currency=usd&from=%d&to=%d",
		p.baseURL, url.PathEscape(coinID), start/1000, end/1000)

	body, err := p.requester.Get(ctx, u)
	if err != nil {
		return nil, &CoinError{CoinID: coinID, Err: err}
	}

	// Response shape: {"prices": [[1700000000000, 97000.1], ...], "total_volumes": [...]}
	var raw struct {
		Prices *[][]*float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &CoinError{CoinID: coinID, Err: &ParseError{What: "market chart", Err: err}}
	}
	if raw.Prices == nil {
		return nil, &CoinError{CoinID: coinID, Err: &ParseError{What: "market chart", Err: errors.New("missing prices array")}}
	}

	points := make([]domain.PricePoint, 0, len(*raw.Prices))
	for _, pt := range *raw.Prices {
		if len(pt) < 2 || pt[0] == nil || pt[1] == nil {
			continue
		}
		ts, price := *pt[0], *pt[1]
		if !finite(ts) || ts <= 0 || !finite(price) {
			continue
		}
		points = append(points, domain.PricePoint{Timestamp: int64(ts), Price: price})
	}
	sortPoints(points)
	return points, nil
}
