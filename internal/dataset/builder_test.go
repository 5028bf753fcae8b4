package dataset

import (
	"math"
	"testing"

	"rsi-board/internal/domain"
)

var btc = domain.Coin{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"}

func history(prices ...float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{Timestamp: int64(1000 * (i + 1)), Price: p}
	}
	return out
}

func TestBuildAlignsPoints(t *testing.T) {
	ds, ok := Build(btc, history(1, 2, 3, 2, 4, 5), 3)
	if !ok {
		t.Fatal("expected dataset")
	}
	if ds.Label != "BTC" || ds.DisplayName != "Bitcoin (BTC)" {
		t.Fatalf("unexpected labels: %q %q", ds.Label, ds.DisplayName)
	}
	if len(ds.Points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(ds.Points))
	}
	for i, p := range ds.Points {
		if p.X != int64(1000*(i+1)) {
			t.Fatalf("point %d has x=%d", i, p.X)
		}
		if i < 3 && p.Y != nil {
			t.Fatalf("point %d should be null", i)
		}
		if i >= 3 && (p.Y == nil || *p.Y < 0 || *p.Y > 100) {
			t.Fatalf("point %d should carry an RSI value, got %v", i, p.Y)
		}
	}
}

func TestBuildFiltersInvalidEntries(t *testing.T) {
	h := history(1, 2, 3, 4, 5)
	h = append(h,
		domain.PricePoint{Timestamp: 9000, Price: math.NaN()},
		domain.PricePoint{Timestamp: 0, Price: 7},
		domain.PricePoint{Timestamp: 9500, Price: math.Inf(1)},
	)
	ds, ok := Build(btc, h, 2)
	if !ok {
		t.Fatal("expected dataset")
	}
	if len(ds.Points) != 5 {
		t.Fatalf("expected invalid entries removed, got %d points", len(ds.Points))
	}
}

func TestBuildAbsentWhenAllInvalid(t *testing.T) {
	h := []domain.PricePoint{
		{Timestamp: 1, Price: math.NaN()},
		{Timestamp: -1, Price: 1},
	}
	if _, ok := Build(btc, h, 1); ok {
		t.Fatal("expected absent dataset")
	}
}

func TestBuildAbsentWhenTooShort(t *testing.T) {
	if _, ok := Build(btc, history(1, 2, 3), 14); ok {
		t.Fatal("expected absent dataset for short history")
	}
}

func TestLabelFallsBackToID(t *testing.T) {
	c := domain.Coin{ID: "mystery-coin"}
	if Label(c) != "mystery-coin" || DisplayName(c) != "mystery-coin" {
		t.Fatalf("unexpected labels %q %q", Label(c), DisplayName(c))
	}
}
