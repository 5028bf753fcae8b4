package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"rsi-board/internal/dataset"
	"rsi-board/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTopCoins      = 20
	defaultProgressEvery = 3
)

// MarketProvider is the market data client used by a load cycle.
type MarketProvider interface {
	ListTopCoins(ctx context.Context, limit int) ([]domain.Coin, error)
	FetchHistory(ctx context.Context, coinID string, rangeDays int) ([]domain.PricePoint, error)
}

// Presenter receives progress text while a cycle runs and the final datasets when it ends.
type Presenter interface {
	Status(phase domain.Phase, text string)
	Render(cfg domain.LoadConfig, datasets []domain.Dataset, text string)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type Options struct {
	TopCoins      int
	ProgressEvery int
	// HistoryCacheTTL enables the per coin+range history cache when redis is set.
	HistoryCacheTTL time.Duration
}

// Result is the outcome of one load cycle.
type Result struct {
	Datasets     []domain.Dataset
	Insufficient []string
	Failed       []string
	Status       string
	Err          error
}

// RSIService runs load cycles: top coins, then each coin's history in turn,
// then RSI datasets handed to the presenter. Only one cycle runs at a time;
// requests arriving meanwhile collapse into a single pending one.
type RSIService struct {
	tracer    trace.Tracer
	provider  MarketProvider
	presenter Presenter
	redis     RedisClient
	opts      Options

	cacheMu sync.RWMutex
	coins   []domain.Coin

	mu      sync.Mutex
	idle    *sync.Cond
	running bool
	current domain.LoadConfig
	pending *domain.LoadConfig
	cycles  int
}

func NewRSIService(
	tracer trace.Tracer,
	provider MarketProvider,
	presenter Presenter,
	redisClient RedisClient,
	opts Options,
) *RSIService {
	if opts.TopCoins <= 0 {
		opts.TopCoins = defaultTopCoins
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	s := &RSIService{
		tracer:    tracer,
		provider:  provider,
		presenter: presenter,
		redis:     redisClient,
		opts:      opts,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// RequestLoad starts a cycle in the background, or queues cfg behind the
// running one. Only the latest queued request survives, and a forced refresh
// stays forced when a normal request replaces it. It reports whether a new
// cycle was started.
func (s *RSIService) RequestLoad(ctx context.Context, cfg domain.LoadConfig) bool {
	s.mu.Lock()
	if s.running {
		if s.pending != nil && s.pending.Force {
			cfg.Force = true
		}
		s.pending = &cfg
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.current = cfg
	s.mu.Unlock()

	go s.drain(ctx, cfg)
	return true
}

func (s *RSIService) drain(ctx context.Context, cfg domain.LoadConfig) {
	for {
		s.Load(ctx, cfg)

		s.mu.Lock()
		s.cycles++
		if s.pending == nil || ctx.Err() != nil {
			s.pending = nil
			s.running = false
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		cfg = *s.pending
		s.pending = nil
		s.current = cfg
		s.mu.Unlock()
	}
}

// Wait blocks until no cycle is running and none is pending.
func (s *RSIService) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		s.idle.Wait()
	}
}

// Busy reports whether a cycle is in progress.
func (s *RSIService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LatestConfig is the configuration the board will show once the service is
// idle again: the queued request, else the running one. Force is cleared.
// ok is false when no cycle is running.
func (s *RSIService) LatestConfig() (cfg domain.LoadConfig, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return domain.LoadConfig{}, false
	}
	cfg = s.current
	if s.pending != nil {
		cfg = *s.pending
	}
	cfg.Force = false
	return cfg, true
}

// Cycles is the number of completed load cycles.
func (s *RSIService) Cycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// CachedCoins returns the coin list of the last successful fetch without touching the network.
func (s *RSIService) CachedCoins() []domain.Coin {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return append([]domain.Coin(nil), s.coins...)
}

// Load runs one cycle synchronously. Callers that may overlap should use RequestLoad.
func (s *RSIService) Load(ctx context.Context, cfg domain.LoadConfig) Result {
	ctx, span := s.tracer.Start(ctx, "rsi-service.load")
	defer span.End()
	span.SetAttributes(
		attribute.Int("period", cfg.Period),
		attribute.Int("range_days", cfg.RangeDays),
		attribute.Bool("force", cfg.Force),
	)

	if err := cfg.Validate(); err != nil {
		status := "Invalid parameters: " + err.Error()
		s.presenter.Status(domain.PhaseIdle, status)
		return Result{Status: status, Err: err}
	}

	s.presenter.Status(domain.PhaseFetchingCoins, "Loading top coins...")
	coins, err := s.topCoins(ctx, cfg.Force)
	if err == nil && len(coins) == 0 {
		err = errors.New("provider returned no coins")
	}
	if err != nil {
		log.Printf("coin list fetch failed: %v", err)
		span.RecordError(err)
		s.presenter.Status(domain.PhaseIdle, statusLoadFailed)
		return Result{Status: statusLoadFailed, Err: err}
	}

	var (
		datasets     []domain.Dataset
		insufficient []string
		failed       []string
	)
	total := len(coins)
	s.presenter.Status(domain.PhaseFetchingHistories, progressText(0, total))

	// One coin at a time: the shared rate limiter spaces the calls anyway and
	// progress stays monotonic.
	for i, coin := range coins {
		label := dataset.Label(coin)
		history, err := s.history(ctx, coin.ID, cfg.RangeDays)
		switch {
		case err != nil:
			log.Printf("history fetch failed for %s: %v", coin.ID, err)
			failed = append(failed, label)
		default:
			if ds, ok := dataset.Build(coin, history, cfg.Period); ok {
				datasets = append(datasets, ds)
			} else {
				log.Printf("%s: %v (%d price points, period %d)", coin.ID, domain.ErrInsufficientData, len(history), cfg.Period)
				insufficient = append(insufficient, label)
			}
		}

		done := i + 1
		if done%s.opts.ProgressEvery == 0 || done == total {
			s.presenter.Status(domain.PhaseFetchingHistories, progressText(done, total))
		}
		if ctx.Err() != nil {
			failed = append(failed, labelsOf(coins[done:])...)
			break
		}
	}

	s.presenter.Status(domain.PhaseRendering, "Rendering chart...")
	status := summarize(cfg, total, len(datasets), insufficient, failed)
	if len(failed) == total {
		datasets = nil
	}
	s.presenter.Render(cfg, datasets, status)
	log.Printf("load finished: %d rendered, %d insufficient, %d failed", len(datasets), len(insufficient), len(failed))

	return Result{
		Datasets:     datasets,
		Insufficient: insufficient,
		Failed:       failed,
		Status:       status,
	}
}

func (s *RSIService) topCoins(ctx context.Context, force bool) ([]domain.Coin, error) {
	if !force {
		if cached := s.CachedCoins(); len(cached) > 0 {
			return cached, nil
		}
	} else {
		s.cacheMu.Lock()
		s.coins = nil
		s.cacheMu.Unlock()
	}

	coins, err := s.provider.ListTopCoins(ctx, s.opts.TopCoins)
	if err != nil {
		return nil, err
	}
	if len(coins) > 0 {
		s.cacheMu.Lock()
		s.coins = append([]domain.Coin(nil), coins...)
		s.cacheMu.Unlock()
	}
	return coins, nil
}

func (s *RSIService) history(ctx context.Context, coinID string, rangeDays int) ([]domain.PricePoint, error) {
	useCache := s.redis != nil && s.opts.HistoryCacheTTL > 0
	if useCache {
		cached, err := s.getHistoryCache(ctx, coinID, rangeDays)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	points, err := s.provider.FetchHistory(ctx, coinID, rangeDays)
	if err != nil {
		return nil, err
	}
	if useCache {
		if err := s.setHistoryCache(ctx, coinID, rangeDays, points); err != nil {
			log.Printf("redis cache write error for %s: %v", coinID, err)
		}
	}
	return points, nil
}

func historyKey(coinID string, rangeDays int) string {
	return fmt.Sprintf("history:%s:%d", coinID, rangeDays)
}

func (s *RSIService) setHistoryCache(ctx context.Context, coinID string, rangeDays int, points []domain.PricePoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, historyKey(coinID, rangeDays), data, s.opts.HistoryCacheTTL).Err()
}

func (s *RSIService) getHistoryCache(ctx context.Context, coinID string, rangeDays int) ([]domain.PricePoint, error) {
	data, err := s.redis.Get(ctx, historyKey(coinID, rangeDays)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var points []domain.PricePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func labelsOf(coins []domain.Coin) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = dataset.Label(c)
	}
	return out
}
