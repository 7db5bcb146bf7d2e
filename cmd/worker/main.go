package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drewmudry/shootplan-api/internal/platform"
	"github.com/drewmudry/shootplan-api/worker"
)

// run starts concurrency listeners on every registered queue and waits for
// them to return.
func run(ctx context.Context, p *worker.Processor, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	queues := p.Queues()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return p.Listen(ctx, queues...)
		})
	}
	return g.Wait()
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

	analyzer, _, err := platform.NewAnalyzer(cfg, log)
	if err != nil {
		log.Fatal("no analysis backend configured", zap.Error(err))
	}

	p := worker.NewProcessor(db, rdb, analyzer, log)
	p.RegisterDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("worker started", zap.Int("concurrency", cfg.WorkerConcurrency))
	if err := run(ctx, p, cfg.WorkerConcurrency); err != nil {
		log.Error("worker stopped with error", zap.Error(err))
		return
	}
	log.Info("worker stopped")
}
