package job

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rsi-board/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type LoadRequester interface {
	RequestLoad(ctx context.Context, cfg domain.LoadConfig) bool
}

// ConfigSource yields the parameters of the last rendered cycle.
type ConfigSource interface {
	Config() domain.LoadConfig
}

// RefreshJob re-requests the last rendered configuration on a cron schedule.
// Ticks that land while a cycle runs are coalesced by the loader.
type RefreshJob struct {
	tracer  trace.Tracer
	loader  LoadRequester
	configs ConfigSource
	spec    string
	cron    *cron.Cron
}

func NewRefreshJob(tracer trace.Tracer, loader LoadRequester, configs ConfigSource, spec string) *RefreshJob {
	return &RefreshJob{
		tracer:  tracer,
		loader:  loader,
		configs: configs,
		spec:    strings.TrimSpace(spec),
		cron:    cron.New(),
	}
}

// Start schedules the refresh. Blocks until ctx is cancelled. An empty spec
// disables the job and returns at once.
func (j *RefreshJob) Start(ctx context.Context) error {
	if j.spec == "" {
		log.Println("Refresh job disabled")
		return nil
	}
	if _, err := j.cron.AddFunc(j.spec, func() { j.tick(ctx) }); err != nil {
		return fmt.Errorf("register refresh %q: %w", j.spec, err)
	}

	j.cron.Start()
	log.Printf("Refresh job started (%s)", j.spec)

	<-ctx.Done()
	<-j.cron.Stop().Done()
	log.Println("Refresh job stopped")
	return nil
}

func (j *RefreshJob) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := j.tracer.Start(ctx, "refresh-job.tick")
	defer span.End()

	cfg := j.configs.Config()
	cfg.Force = false
	started := j.loader.RequestLoad(ctx, cfg)
	span.SetAttributes(attribute.Bool("started", started))
	if !started {
		log.Println("refresh: load already running, queued")
	}
}
