// Package dataset turns a coin's price history into a chart-ready RSI dataset.
package dataset

import (
	"fmt"
	"math"
	"strings"

	"rsi-board/internal/domain"
	"rsi-board/internal/ta"
)

// Build computes the RSI series for history and aligns it with the timestamps.
// Entries with a non-finite price or a non-positive timestamp are dropped first.
// The second return is false when no point ends up with a value.
func Build(coin domain.Coin, history []domain.PricePoint, period int) (domain.Dataset, bool) {
	valid := make([]domain.PricePoint, 0, len(history))
	for _, p := range history {
		if p.Timestamp <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		valid = append(valid, p)
	}

	prices := make([]float64, len(valid))
	for i, p := range valid {
		prices[i] = p.Price
	}
	series := ta.RSISeries(prices, period)

	ds := domain.Dataset{
		Label:       Label(coin),
		DisplayName: DisplayName(coin),
		Points:      make([]domain.Point, len(valid)),
	}
	for i, p := range valid {
		ds.Points[i] = domain.Point{X: p.Timestamp}
		if v := series[i]; !math.IsNaN(v) {
			ds.Points[i].Y = &v
		}
	}
	if !ds.Renderable() {
		return domain.Dataset{}, false
	}
	return ds, true
}

// Label is the short legend name: the upper-cased symbol, or the id when the symbol is blank.
func Label(coin domain.Coin) string {
	if s := strings.TrimSpace(coin.Symbol); s != "" {
		return strings.ToUpper(s)
	}
	return coin.ID
}

func DisplayName(coin domain.Coin) string {
	label := Label(coin)
	if coin.Name == "" || coin.Name == label {
		return label
	}
	return fmt.Sprintf("%s (%s)", coin.Name, label)
}
