package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientData marks a coin whose history was fetched but produced no RSI value.
var ErrInsufficientData = errors.New("insufficient data")

// Coin identifies a tradable asset as listed by the market data provider.
type Coin struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// PricePoint is a single price sample. Timestamp is epoch milliseconds.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// Point is one chart sample. A nil Y is rendered as a gap.
type Point struct {
	X int64    `json:"x"`
	Y *float64 `json:"y"`
}

type Dataset struct {
	Label       string  `json:"label"`
	DisplayName string  `json:"display_name"`
	Points      []Point `json:"points"`
}

// Renderable reports whether at least one point carries a value.
func (d Dataset) Renderable() bool {
	for _, p := range d.Points {
		if p.Y != nil {
			return true
		}
	}
	return false
}

const (
	MaxPeriod    = 200
	MaxRangeDays = 365
)

// LoadConfig holds the user-selected parameters of one load cycle.
type LoadConfig struct {
	Period    int  `json:"period"`
	RangeDays int  `json:"range_days"`
	Force     bool `json:"force"`
}

func (c LoadConfig) Validate() error {
	if c.Period < 1 || c.Period > MaxPeriod {
		return fmt.Errorf("period must be between 1 and %d, got %d", MaxPeriod, c.Period)
	}
	if c.RangeDays < 1 || c.RangeDays > MaxRangeDays {
		return fmt.Errorf("range_days must be between 1 and %d, got %d", MaxRangeDays, c.RangeDays)
	}
	return nil
}

// Phase is the state of the load cycle.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseFetchingCoins     Phase = "fetching_coins"
	PhaseFetchingHistories Phase = "fetching_histories"
	PhaseRendering         Phase = "rendering"
)

// Snapshot is what presentation layers read: the last rendered datasets and current status.
type Snapshot struct {
	Datasets  []Dataset  `json:"datasets"`
	Status    string     `json:"status"`
	Phase     Phase      `json:"phase"`
	Config    LoadConfig `json:"config"`
	UpdatedAt time.Time  `json:"updated_at"`
}
