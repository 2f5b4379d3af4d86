package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/rohhann12/keeping-track-of-it/internal/config"
	"github.com/rohhann12/keeping-track-of-it/internal/metrics"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

// EventWorker consumes project.* and task.* tasks from the events queue.
type EventWorker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor EventProcessor
	running   bool
	mu        sync.Mutex
}

// NewEventWorker returns nil when Redis is disabled.
func NewEventWorker(cfg *config.Config, processor EventProcessor) *EventWorker {
	if !cfg.Redis.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(&cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Events.Concurrency,
			Queues: map[string]int{
				cfg.Events.Queue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn().Err(err).Str("topic", task.Type()).Msg("[EventWorker] task failed")
			}),
		},
	)

	w := &EventWorker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
	w.mux.HandleFunc(projectTopicPrefix, w.handle)
	w.mux.HandleFunc(taskTopicPrefix, w.handle)
	return w
}

// Start begins processing in the background. server.Run is not used
// because it blocks on OS signals and would outlive Stop.
func (w *EventWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start event worker: %w", err)
	}
	w.running = true
	logger.Infof("[EventWorker] Started")
	return nil
}

// Stop waits for in-flight events and shuts the server down.
func (w *EventWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[EventWorker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[EventWorker] Shutdown complete")
}

func (w *EventWorker) handle(ctx context.Context, t *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if event.Topic == "" {
		event.Topic = t.Type()
	}

	metrics.RecordEventConsumed(event.Topic)
	if w.processor == nil {
		return nil
	}
	return w.processor(ctx, event)
}
