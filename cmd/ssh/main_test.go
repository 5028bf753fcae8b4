package main

import (
	"context"
	"os"
	"testing"
	"time"

	"rsi-board/internal/board"
	"rsi-board/internal/config"
	"rsi-board/internal/domain"

	"github.com/charmbracelet/ssh"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	restore := stubSSHDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

type recordingSource struct {
	*board.Board
	updates <-chan domain.Snapshot
}

func (r *recordingSource) Subscribe() (<-chan domain.Snapshot, func()) {
	ch, cancel := r.Board.Subscribe()
	r.updates = ch
	return ch, cancel
}

type noopLoader struct{}

func (noopLoader) RequestLoad(context.Context, domain.LoadConfig) bool { return false }

func TestSessionModelUnsubscribesWhenSessionEnds(t *testing.T) {
	source := &recordingSource{Board: board.New(domain.LoadConfig{Period: 14, RangeDays: 7})}
	session, endSession := context.WithCancel(context.Background())

	newSessionModel(context.Background(), session, source, noopLoader{})
	<-source.updates

	endSession()
	select {
	case _, ok := <-source.updates:
		if ok {
			t.Fatal("expected subscription to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription still open after session ended")
	}
}

func stubSSHDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewWishServer := newWishServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			MarketProvider: config.ProviderCoinCap,
			CoinCapBaseURL: "http://127.0.0.1:1",
			MaxAttempts:    1,
			TopCoins:       1,
			RSIPeriod:      14,
			RangeDays:      7,
			SSHPort:        2222,
			SSHHostKeyPath: ".ssh/test_key",
		}
	}
	initRedisFunc = func(context.Context, string) (*redis.Client, error) { return nil, nil }
	initTracerFunc = func(ctx context.Context, name string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newWishServerFunc = func(ops ...ssh.Option) (*ssh.Server, error) {
		return nil, nil
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newWishServerFunc = origNewWishServer
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}
