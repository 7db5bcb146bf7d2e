package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/tasks"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// DefaultPollTimeout bounds each BRPOP so Listen notices cancellation.
const DefaultPollTimeout = 2 * time.Second

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB       *gorm.DB
	RDB      *redis.Client
	Analyzer *analysis.Analyzer
	Logger   *zap.Logger

	PollTimeout time.Duration
	handlers    map[string]TaskHandler
}

// NewProcessor creates a new worker processor.
func NewProcessor(db *gorm.DB, rdb *redis.Client, analyzer *analysis.Analyzer, log *zap.Logger) *Processor {
	return &Processor{
		DB:          db,
		RDB:         rdb,
		Analyzer:    analyzer,
		Logger:      log,
		PollTimeout: DefaultPollTimeout,
		handlers:    make(map[string]TaskHandler),
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	p.Logger.Info("registered handler", zap.String("queue", queueName))
}

// RegisterDefaults registers the handlers for every queue in tasks.
func (p *Processor) RegisterDefaults() {
	p.Register(tasks.QueueScriptAnalysis, p.HandleScriptAnalysis)
	p.Register(tasks.QueueComplexityScoring, p.HandleComplexityScoring)
}

// Queues lists the registered queue names.
func (p *Processor) Queues() []string {
	names := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		names = append(names, name)
	}
	return names
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	return tasks.Enqueue(ctx, p.RDB, queueName, payload)
}

// Listen pops tasks from the given queues until ctx is done. Tasks are
// handled one at a time; run several Listen calls for concurrency.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) error {
	p.Logger.Info("worker listening", zap.Strings("queues", queueNames))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		result, err := p.RDB.BRPop(ctx, p.PollTimeout, queueNames...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			p.Logger.Warn("error popping from queue", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		p.Process(ctx, result[0], result[1])
	}
}

// Process runs the handler registered for queueName on payload.
func (p *Processor) Process(ctx context.Context, queueName, payload string) {
	handler, ok := p.handlers[queueName]
	if !ok {
		p.Logger.Error("no handler registered", zap.String("queue", queueName))
		return
	}

	start := time.Now()
	if err := handler(ctx, payload); err != nil {
		p.Logger.Error("task failed", zap.String("queue", queueName), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	p.Logger.Info("task done", zap.String("queue", queueName), zap.Duration("took", time.Since(start)))
}
