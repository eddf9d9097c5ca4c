package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/database"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGormDB(database.Config{Driver: database.DriverSQLite, Silent: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestFactory(t *testing.T) (unitofwork.RepositoryFactory, *gorm.DB) {
	db := newTestDB(t)
	return unitofwork.NewRepositoryFactory(db), db
}

// fakeProvider answers with reply, or calls fn when set.
type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	fn    func(ctx context.Context, history []llm.Message, opts llm.Options) (string, error)
	calls [][]llm.Message
	opts  []llm.Options
}

func (p *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{}, options...)

	p.mu.Lock()
	p.calls = append(p.calls, append([]llm.Message(nil), history...))
	p.opts = append(p.opts, opts)
	fn := p.fn
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, history, opts)
	}
	return p.reply, p.err
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func (p *fakeProvider) lastCall() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}

// recordingPublisher keeps published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BaseEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	var e events.BaseEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// stepClock advances by step on every read.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}
