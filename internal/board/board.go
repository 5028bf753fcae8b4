package board

import (
	"math"
	"strings"
	"sync"
	"time"

	"rsi-board/internal/domain"
	"rsi-board/internal/ta"
)

const (
	Overbought = 70.0
	Oversold   = 30.0
)

// Board keeps the latest snapshot of the load cycle and fans it out to
// subscribers. It is the Presenter shared by every front end.
type Board struct {
	mu   sync.RWMutex
	snap domain.Snapshot
	subs map[chan domain.Snapshot]struct{}
	now  func() time.Time
}

func New(initial domain.LoadConfig) *Board {
	return &Board{
		snap: domain.Snapshot{
			Status: "Waiting for first load...",
			Phase:  domain.PhaseIdle,
			Config: initial,
		},
		subs: make(map[chan domain.Snapshot]struct{}),
		now:  time.Now,
	}
}

func (b *Board) Status(phase domain.Phase, text string) {
	b.mu.Lock()
	b.snap.Phase = phase
	b.snap.Status = text
	b.snap.UpdatedAt = b.now()
	b.publishLocked()
	b.mu.Unlock()
}

// Render replaces the datasets. The config is stored without Force so a
// scheduled refresh reusing it stays a normal load.
func (b *Board) Render(cfg domain.LoadConfig, datasets []domain.Dataset, text string) {
	cfg.Force = false
	b.mu.Lock()
	b.snap.Datasets = datasets
	b.snap.Config = cfg
	b.snap.Status = text
	b.snap.Phase = domain.PhaseIdle
	b.snap.UpdatedAt = b.now()
	b.publishLocked()
	b.mu.Unlock()
}

// Snapshot returns a copy of the latest state.
func (b *Board) Snapshot() domain.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyLocked()
}

// Config is the configuration of the last rendered cycle.
func (b *Board) Config() domain.LoadConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap.Config
}

// Subscribe returns a channel that always holds the newest snapshot and a
// func to stop receiving, which closes the channel. Slow readers skip
// intermediate states.
func (b *Board) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	ch <- b.copyLocked()
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
}

func (b *Board) publishLocked() {
	snap := b.copyLocked()
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (b *Board) copyLocked() domain.Snapshot {
	snap := b.snap
	snap.Datasets = append([]domain.Dataset(nil), b.snap.Datasets...)
	return snap
}

// Row is the latest RSI reading of one coin.
type Row struct {
	Label       string  `json:"label"`
	DisplayName string  `json:"display_name"`
	RSI         float64 `json:"rsi"`
	Zone        string  `json:"zone"`
}

// Rows lists the latest RSI of every dataset in snapshot order.
func Rows(snap domain.Snapshot) []Row {
	rows := make([]Row, 0, len(snap.Datasets))
	for _, ds := range snap.Datasets {
		v, ok := LatestRSI(ds)
		if !ok {
			continue
		}
		rows = append(rows, Row{Label: ds.Label, DisplayName: ds.DisplayName, RSI: v, Zone: Zone(v)})
	}
	return rows
}

// Find looks a dataset up by label, case-insensitively.
func Find(snap domain.Snapshot, label string) (domain.Dataset, bool) {
	for _, ds := range snap.Datasets {
		if strings.EqualFold(ds.Label, label) {
			return ds, true
		}
	}
	return domain.Dataset{}, false
}

func LatestRSI(ds domain.Dataset) (float64, bool) {
	series := make([]float64, len(ds.Points))
	for i, p := range ds.Points {
		if p.Y == nil {
			series[i] = math.NaN()
			continue
		}
		series[i] = *p.Y
	}
	return ta.Latest(series)
}

func Zone(v float64) string {
	switch {
	case v >= Overbought:
		return "overbought"
	case v <= Oversold:
		return "oversold"
	default:
		return "neutral"
	}
}
