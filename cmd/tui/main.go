package main

import (
	"context"
	"log"
	"os"

	"rsi-board/internal/app"
	"rsi-board/internal/cache"
	"rsi-board/internal/config"
	"rsi-board/internal/job"
	"rsi-board/internal/service"
	"rsi-board/internal/tui"
	"rsi-board/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initRedisFunc  = cache.InitRedis
	initTracerFunc = tracing.InitTracer
	logToFileFunc  = tea.LogToFile
	runProgramFunc = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	// The terminal belongs to the UI, so logs go to a file.
	if f, err := logToFileFunc("rsi-board-tui.log", "tui"); err == nil {
		defer f.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "rsi-board-tui")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	var historyCache service.RedisClient
	redisClient, err := initRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: %v, history cache disabled", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		historyCache = redisClient
	}

	pipeline := app.New(tracer, cfg, historyCache)
	pipeline.Service.RequestLoad(ctx, app.InitialConfig(cfg))

	refresh := job.NewRefreshJob(tracer, pipeline.Service, pipeline.Board, cfg.RefreshCron)
	go func() {
		if err := refresh.Start(ctx); err != nil {
			log.Printf("refresh job: %v", err)
		}
	}()

	model := tui.NewModel(ctx, pipeline.Board, pipeline.Service)
	if err := runProgramFunc(model); err != nil {
		log.Printf("tui exited with error: %v", err)
		cancel()
		os.Exit(1)
	}
}
