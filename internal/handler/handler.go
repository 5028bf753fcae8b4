package handler

import (
	"context"

	"rsi-board/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Loader schedules load cycles.
type Loader interface {
	RequestLoad(ctx context.Context, cfg domain.LoadConfig) bool
	LatestConfig() (domain.LoadConfig, bool)
	Busy() bool
	CachedCoins() []domain.Coin
}

// SnapshotSource exposes the latest rendered state.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
	Config() domain.LoadConfig
}

type Handler struct {
	tracer    trace.Tracer
	loader    Loader
	snapshots SnapshotSource
}

func New(tracer trace.Tracer, loader Loader, snapshots SnapshotSource) *Handler {
	return &Handler{
		tracer:    tracer,
		loader:    loader,
		snapshots: snapshots,
	}
}

// RegisterRoutes mounts the page, health check and JSON API. apiMiddleware
// runs on the /api group only.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiMiddleware ...gin.HandlerFunc) {
	r.GET("/", h.Page)
	r.GET("/health", h.Health)

	api := r.Group("/api", apiMiddleware...)
	api.GET("/rsi", h.GetRSI)
	api.GET("/rsi/:label", h.GetCoinRSI)
	api.POST("/rsi/load", h.TriggerLoad)
	api.GET("/coins", h.GetCoins)
}
