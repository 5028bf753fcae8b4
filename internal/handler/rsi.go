package handler

import (
	"context"
	"net/http"
	"strings"

	"rsi-board/internal/board"
	"rsi-board/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type loadRequest struct {
	Period    *int `json:"period"`
	RangeDays *int `json:"range_days"`
	Force     bool `json:"force"`
}

// GetRSI godoc
// @Summary      Latest RSI snapshot
// @Description  Returns the last rendered datasets, the status line, the current phase and the latest RSI per coin
// @Tags         rsi
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/rsi [get]
func (h *Handler) GetRSI(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-rsi")
	defer span.End()

	snap := h.snapshots.Snapshot()
	span.SetAttributes(attribute.Int("datasets", len(snap.Datasets)))

	c.JSON(http.StatusOK, gin.H{
		"datasets":   nonNil(snap.Datasets),
		"status":     snap.Status,
		"phase":      snap.Phase,
		"config":     snap.Config,
		"updated_at": snap.UpdatedAt,
		"latest":     board.Rows(snap),
		"loading":    h.loader.Busy(),
	})
}

// GetCoinRSI godoc
// @Summary      RSI series for one coin
// @Description  Returns the dataset of a coin from the latest snapshot by its label (symbol)
// @Tags         rsi
// @Produce      json
// @Param        label  path  string  true  "Coin label (e.g., BTC)"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/rsi/{label} [get]
func (h *Handler) GetCoinRSI(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-coin-rsi")
	defer span.End()

	label := strings.ToUpper(c.Param("label"))
	span.SetAttributes(attribute.String("label", label))

	snap := h.snapshots.Snapshot()
	ds, ok := board.Find(snap, label)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no RSI data for " + label})
		return
	}

	resp := gin.H{"dataset": ds, "config": snap.Config}
	if v, ok := board.LatestRSI(ds); ok {
		resp["latest"] = v
		resp["zone"] = board.Zone(v)
	}
	c.JSON(http.StatusOK, resp)
}

// TriggerLoad godoc
// @Summary      Request a load cycle
// @Description  Starts a load with the given parameters, or queues it behind the running one. Omitted fields reuse the queued or running configuration, else the last rendered one.
// @Tags         rsi
// @Accept       json
// @Produce      json
// @Param        request  body  domain.LoadConfig  false  "Load parameters"
// @Success      202  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/rsi/load [post]
func (h *Handler) TriggerLoad(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-load")
	defer span.End()

	var req loadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	cfg := h.snapshots.Config()
	if latest, ok := h.loader.LatestConfig(); ok {
		cfg = latest
	}
	if req.Period != nil {
		cfg.Period = *req.Period
	}
	if req.RangeDays != nil {
		cfg.RangeDays = *req.RangeDays
	}
	cfg.Force = req.Force
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(
		attribute.Int("period", cfg.Period),
		attribute.Int("range_days", cfg.RangeDays),
		attribute.Bool("force", cfg.Force),
	)

	// The cycle outlives this request.
	started := h.loader.RequestLoad(context.WithoutCancel(ctx), cfg)
	status := "queued"
	if started {
		status = "started"
	}
	c.JSON(http.StatusAccepted, gin.H{"status": status, "config": cfg})
}

// GetCoins godoc
// @Summary      Cached top coins
// @Description  Returns the coin list of the last successful fetch without calling the provider
// @Tags         rsi
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/coins [get]
func (h *Handler) GetCoins(c *gin.Context) {
	coins := h.loader.CachedCoins()
	if coins == nil {
		coins = []domain.Coin{}
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins, "count": len(coins)})
}

func nonNil(ds []domain.Dataset) []domain.Dataset {
	if ds == nil {
		return []domain.Dataset{}
	}
	return ds
}
