package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rsi-board/internal/app"
	"rsi-board/internal/bot"
	"rsi-board/internal/cache"
	"rsi-board/internal/config"
	"rsi-board/internal/handler"
	"rsi-board/internal/job"
	"rsi-board/internal/service"
	"rsi-board/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "rsi-board/docs"
)

const serviceName = "rsi-board"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newAppFunc             = app.New
	startRefreshJobFunc    = func(j *job.RefreshJob, ctx context.Context) { go runRefreshJob(j, ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           RSI Board API
// @version         1.0
// @description     Relative Strength Index of the top crypto assets, refreshed from a rate-limited market data provider.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Redis is optional: without it histories are always fetched live.
	var historyCache service.RedisClient
	redisClient, err := initRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: %v, history cache disabled", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		historyCache = redisClient
	}

	pipeline := newAppFunc(tracer, cfg, historyCache)
	pipeline.Service.RequestLoad(ctx, app.InitialConfig(cfg))

	// Scheduled refresh (stopped by ctx cancel)
	startRefreshJobFunc(job.NewRefreshJob(tracer, pipeline.Service, pipeline.Board, cfg.RefreshCron), ctx)

	// Start Telegram bot
	if err := startTelegramBotFunc(ctx, cfg.TelegramBotToken, pipeline.Board, pipeline.Service); err != nil {
		log.Printf("Telegram bot disabled: %v", err)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, pipeline.Service, pipeline.Board)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))

	h.RegisterRoutes(r, cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func runRefreshJob(j *job.RefreshJob, ctx context.Context) {
	if err := j.Start(ctx); err != nil {
		log.Printf("refresh job: %v", err)
	}
}
