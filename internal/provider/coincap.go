package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rsi-board/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const coincapBaseURL = "https://api.coincap.io/v2"

// CoinCapProvider reads the asset listing and price history from the CoinCap v2 API.
type CoinCapProvider struct {
	requester *Requester
	baseURL   string
	tracer    trace.Tracer
	now       func() time.Time
}

func NewCoinCapProvider(tracer trace.Tracer, requester *Requester, baseURL string) *CoinCapProvider {
	if baseURL == "" {
		baseURL = coincapBaseURL
	}
	return &CoinCapProvider{
		requester: requester,
		baseURL:   strings.TrimRight(baseURL, "/"),
		tracer:    tracer,
		now:       time.Now,
	}
}

func (p *CoinCapProvider) Name() string { return "coincap" }

// CoinCapInterval picks the history sampling interval for a range so responses stay a few hundred points.
func CoinCapInterval(rangeDays int) string {
	switch {
	case rangeDays <= 1:
		return "m5"
	case rangeDays <= 3:
		return "m15"
	case rangeDays <= 7:
		return "m30"
	case rangeDays <= 30:
		return "h2"
	case rangeDays <= 90:
		return "h6"
	default:
		return "d1"
	}
}

// ListTopCoins returns the first limit assets by market cap rank.
func (p *CoinCapProvider) ListTopCoins(ctx context.Context, limit int) ([]domain.Coin, error) {
	ctx, span := p.tracer.Start(ctx, "coincap.list-top-coins")
	defer span.End()

	limit = clampLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	body, err := p.requester.Get(ctx, fmt.Sprintf("%s/assets?limit=%d", p.baseURL, limit))
	if err != nil {
		return nil, fmt.Errorf("fetch assets: %w", err)
	}

	var rows []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := decodeCoinCapData(body, "assets", &rows); err != nil {
		return nil, err
	}

	coins := make([]domain.Coin, 0, len(rows))
	for _, r := range rows {
		coins = append(coins, domain.Coin{ID: r.ID, Name: r.Name, Symbol: r.Symbol})
	}
	return uniqueCoins(coins), nil
}

// FetchHistory returns the USD price series of coinID over the last rangeDays.
func (p *CoinCapProvider) FetchHistory(ctx context.Context, coinID string, rangeDays int) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "coincap.fetch-history")
	defer span.End()

	interval := CoinCapInterval(rangeDays)
	start, end := window(p.now(), rangeDays)
	span.SetAttributes(
		attribute.String("coin_id", coinID),
		attribute.String("interval", interval),
	)

	u := fmt.Sprintf("%s/assets/%s/history?interval=%s&start=%d&end=%d",
		p.baseURL, url.PathEscape(coinID), interval, start, end)

	body, err := p.requester.Get(ctx, u)
	if err != nil {
		return nil, &CoinError{CoinID: coinID, Err: err}
	}

	var rows []struct {
		PriceUSD *string         `json:"priceUsd"`
		Time     json.RawMessage `json:"time"`
	}
	if err := decodeCoinCapData(body, "history", &rows); err != nil {
		return nil, &CoinError{CoinID: coinID, Err: err}
	}

	points := make([]domain.PricePoint, 0, len(rows))
	for _, r := range rows {
		if r.PriceUSD == nil {
			continue
		}
		price, ok := parseFiniteString(*r.PriceUSD)
		if !ok {
			continue
		}
		ts, ok := parseTimestamp(r.Time)
		if !ok {
			continue
		}
		points = append(points, domain.PricePoint{Timestamp: ts, Price: price})
	}
	sortPoints(points)
	return points, nil
}

// decodeCoinCapData unwraps the {"data": [...]} envelope into out.
func decodeCoinCapData(body []byte, what string, out any) error {
	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ParseError{What: what, Err: err}
	}
	if envelope.Error != "" {
		return &ParseError{What: what, Err: errors.New(envelope.Error)}
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return &ParseError{What: what, Err: errors.New("missing data array")}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &ParseError{What: what, Err: err}
	}
	return nil
}

// parseTimestamp accepts a JSON number or numeric string holding epoch milliseconds.
func parseTimestamp(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n > 0
	}
	f, ok := parseFiniteString(s)
	if !ok || f <= 0 {
		return 0, false
	}
	return int64(f), true
}
