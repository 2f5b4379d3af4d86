package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/testutil"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) IsAsync() bool { return false }
func (p *recordingPublisher) Close() error  { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}

func (p *recordingPublisher) last() Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return Event{}
	}
	return p.events[len(p.events)-1]
}

var errBrokerDown = errors.New("broker down")

type fixture struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	cache     *ResponseCache
	publisher *recordingPublisher
	projects  *ProjectService
	tasks     *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewResponseCache(client, time.Minute)
	publisher := &recordingPublisher{}
	notifier := NewChangeNotifier(cache, publisher)

	return &fixture{
		db:        db,
		redis:     mr,
		cache:     cache,
		publisher: publisher,
		projects:  NewProjectService(db, notifier),
		tasks:     NewTaskService(db, notifier),
	}
}

func userCtx(id uint) access.Context  { return access.NewContext(id, access.RoleUser) }
func adminCtx(id uint) access.Context { return access.NewContext(id, access.RoleAdmin) }

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
