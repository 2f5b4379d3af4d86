package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rohhann12/keeping-track-of-it/internal/config"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

const (
	TopicProjectCreated = "project.created"
	TopicProjectUpdated = "project.updated"
	TopicProjectDeleted = "project.deleted"
	TopicTaskCreated    = "task.created"
	TopicTaskUpdated    = "task.updated"
	TopicTaskDeleted    = "task.deleted"

	// asynq's ServeMux matches task types by prefix.
	projectTopicPrefix = "project."
	taskTopicPrefix    = "task."

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Event is the message emitted once per successful project or task mutation.
type Event struct {
	ID        string `json:"event_id"`
	Topic     string `json:"topic"`
	ProjectID uint   `json:"project_id"`
	TaskID    uint   `json:"task_id,omitempty"`
	UserID    uint   `json:"user_id"`
	Title     string `json:"title"`
	Completed *bool  `json:"completed,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newEvent(topic string) Event {
	return Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now().UTC().Format(timestampLayout),
	}
}

// NewProjectEvent builds a project.* event.
func NewProjectEvent(topic string, p *models.Project) Event {
	e := newEvent(topic)
	e.ProjectID = p.ID
	e.UserID = p.UserID
	e.Title = p.Title
	return e
}

// NewTaskEvent builds a task.* event. ownerID is the owner of the task's
// project. Only task.updated carries the completion flag.
func NewTaskEvent(topic string, t *models.Task, ownerID uint) Event {
	e := newEvent(topic)
	e.ProjectID = t.ProjectID
	e.TaskID = t.ID
	e.UserID = ownerID
	e.Title = t.Title
	if topic == TopicTaskUpdated {
		completed := t.Completed
		e.Completed = &completed
	}
	return e
}

// EventProcessor consumes a published event.
type EventProcessor func(context.Context, Event) error

// EventPublisher hands events to the downstream channel. Publish must not
// block on the consumer.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	// IsAsync returns true if events leave the process through a broker
	IsAsync() bool
	Close() error
}

// NewEventPublisher picks the asynq publisher when Redis is reachable and
// falls back to in-process delivery otherwise.
func NewEventPublisher(cfg *config.Config) EventPublisher {
	if !cfg.Events.Enabled {
		logger.Infof("[Events] Publishing disabled, events will be dropped")
		return NewSyncPublisher()
	}
	if !cfg.Redis.Enabled {
		logger.Infof("[Events] Sync publisher initialized (Redis disabled)")
		return NewSyncPublisher()
	}

	publisher, err := NewAsyncPublisher(&cfg.Redis, cfg.Events.Queue)
	if err != nil {
		logger.Warnf("[Events] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncPublisher()
	}
	logger.Infof("[Events] Async publisher initialized with Redis at %s", cfg.Redis.Addr)
	return publisher
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}
}

// AsyncPublisher enqueues events as asynq tasks whose type is the topic.
type AsyncPublisher struct {
	client *asynq.Client
	queue  string
}

func NewAsyncPublisher(cfg *config.RedisConfig, queue string) (*AsyncPublisher, error) {
	redisOpt := redisClientOpt(cfg)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		return nil, err
	}

	return &AsyncPublisher{client: asynq.NewClient(redisOpt), queue: queue}, nil
}

func (p *AsyncPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	info, err := p.client.EnqueueContext(ctx,
		asynq.NewTask(event.Topic, payload),
		asynq.Queue(p.queue),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", event.Topic, err)
	}

	logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("topic", event.Topic).
		Msg("[Events] enqueued")
	return nil
}

func (p *AsyncPublisher) IsAsync() bool {
	return true
}

func (p *AsyncPublisher) Close() error {
	return p.client.Close()
}

// SyncPublisher delivers events to an in-process processor on a separate
// goroutine. Without a processor events are dropped.
type SyncPublisher struct {
	processor EventProcessor
}

func NewSyncPublisher() *SyncPublisher {
	return &SyncPublisher{}
}

func (p *SyncPublisher) SetProcessor(processor EventProcessor) {
	p.processor = processor
}

func (p *SyncPublisher) Publish(_ context.Context, event Event) error {
	if p.processor == nil {
		logger.Debug().Str("topic", event.Topic).Msg("[Events] no processor set, event dropped")
		return nil
	}

	// detached: the request context is cancelled once the response is sent
	go func() {
		if err := p.processor(context.Background(), event); err != nil {
			logger.Warn().Err(err).Str("topic", event.Topic).Msg("[Events] processing failed")
		}
	}()
	return nil
}

func (p *SyncPublisher) IsAsync() bool {
	return false
}

func (p *SyncPublisher) Close() error {
	return nil
}
