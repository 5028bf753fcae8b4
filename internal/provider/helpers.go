package provider

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"rsi-board/internal/domain"
)

const (
	dayMillis   = int64(24 * time.Hour / time.Millisecond)
	maxTopCoins = 250
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// parseFiniteString parses a numeric string field; blank, malformed and
// non-finite values are reported as missing.
func parseFiniteString(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || !finite(n) {
		return 0, false
	}
	return n, true
}

// window returns the [start, end] epoch-millisecond range covering rangeDays up to now.
func window(now time.Time, rangeDays int) (int64, int64) {
	end := now.UnixMilli()
	return end - int64(rangeDays)*dayMillis, end
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxTopCoins {
		return maxTopCoins
	}
	return limit
}

// uniqueCoins drops entries without an id and repeats of an id already seen.
func uniqueCoins(coins []domain.Coin) []domain.Coin {
	seen := make(map[string]struct{}, len(coins))
	out := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func sortPoints(points []domain.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
}
