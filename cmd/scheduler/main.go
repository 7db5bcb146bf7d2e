package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/festivals"
	"github.com/drewmudry/shootplan-api/internal/platform"
	"github.com/drewmudry/shootplan-api/tasks"
	"github.com/drewmudry/shootplan-api/worker"
)

const (
	staleJobSpec       = "@every 1m"
	festivalExpirySpec = "@hourly"
)

// schedule registers the periodic sweeps on c.
func schedule(c *cron.Cron, db *gorm.DB, p *worker.Processor, log *zap.Logger) error {
	if _, err := c.AddFunc(staleJobSpec, func() {
		n, err := p.FailStaleJobs(context.Background(), time.Now(), worker.StaleJobAge)
		if err != nil {
			log.Error("stale job sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("failed stale analysis jobs", zap.Int("count", n))
		}
	}); err != nil {
		return err
	}

	_, err := c.AddFunc(festivalExpirySpec, func() {
		n, err := festivals.ExpireOverdue(context.Background(), db, time.Now())
		if err != nil {
			log.Error("festival expiry sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("expired festival applications", zap.Int64("count", n))
		}
	})
	return err
}

// listenForAnalysisEvents logs analysis job transitions published by the
// worker. It returns when ctx is done.
func listenForAnalysisEvents(ctx context.Context, rdb *redis.Client, log *zap.Logger, handle func(tasks.AnalysisEvent)) {
	pubsub := rdb.Subscribe(ctx, tasks.ChannelAnalysisEvents)
	defer pubsub.Close()
	ch := pubsub.Channel()

	log.Info("scheduler listening for analysis events")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event tasks.AnalysisEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("bad analysis event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handle(event)
		}
	}
}

func logEvent(log *zap.Logger) func(tasks.AnalysisEvent) {
	return func(e tasks.AnalysisEvent) {
		fields := []zap.Field{
			zap.String("job_id", e.JobID),
			zap.Uint("project_id", e.ProjectID),
			zap.String("status", e.Status),
			zap.Int("attempt", e.Attempt),
		}
		if e.ErrorKind != "" {
			log.Warn("analysis failed", append(fields, zap.String("kind", e.ErrorKind), zap.String("message", e.Message))...)
			return
		}
		log.Info("analysis event", append(fields, zap.String("message", e.Message))...)
	}
}

func main() {
	cfg, _ := platform.LoadConfig()
	log, err := platform.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := platform.NewDBConnection(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	rdb, err := platform.NewRedisClient(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// The sweeps only fail jobs; no analyzer is needed.
	p := worker.NewProcessor(db, rdb, nil, log)

	c := cron.New()
	if err := schedule(c, db, p, log); err != nil {
		log.Fatal("failed to schedule sweeps", zap.Error(err))
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("scheduler started")
	listenForAnalysisEvents(ctx, rdb, log, logEvent(log))
	log.Info("scheduler stopped")
}
