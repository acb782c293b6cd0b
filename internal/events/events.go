package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promotions-service/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventPromotionCreated is emitted after a promotion is committed for the first time
	EventPromotionCreated EventType = "promotion.created"
	// EventPromotionUpdated is emitted after an update is committed
	EventPromotionUpdated EventType = "promotion.updated"
	// EventPromotionDeleted is emitted after a delete is committed
	EventPromotionDeleted EventType = "promotion.deleted"
)

// Event represents an event in the system.
type Event struct {
	Type        EventType
	Timestamp   time.Time
	PromotionID int64
	Promotion   *models.Promotion // nil for deletes
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	wg       sync.WaitGroup
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish runs every handler subscribed to event.Type in its own goroutine.
// Handlers outlive the request that triggered them.
func (m *Manager) Publish(ctx context.Context, event Event) {
	if m == nil {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[event.Type]
	if !m.enabled || len(handlers) == 0 {
		m.mu.RUnlock()
		return
	}
	// counted under the lock so Shutdown waits for them
	m.wg.Add(len(handlers))
	m.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	ctx = context.WithoutCancel(ctx)

	for _, handler := range handlers {
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(ctx, event); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).
					Str("event", string(event.Type)).
					Int64("promotion_id", event.PromotionID).
					Msg("event handler failed")
			}
		}(handler)
	}
}

// PublishCreated publishes a promotion created event.
func (m *Manager) PublishCreated(ctx context.Context, p models.Promotion) {
	m.Publish(ctx, Event{Type: EventPromotionCreated, PromotionID: p.ID, Promotion: &p})
}

// PublishUpdated publishes a promotion updated event.
func (m *Manager) PublishUpdated(ctx context.Context, p models.Promotion) {
	m.Publish(ctx, Event{Type: EventPromotionUpdated, PromotionID: p.ID, Promotion: &p})
}

// PublishDeleted publishes a promotion deleted event.
func (m *Manager) PublishDeleted(ctx context.Context, id int64) {
	m.Publish(ctx, Event{Type: EventPromotionDeleted, PromotionID: id})
}

// AuditLogger returns a handler that writes every event to logger.
func AuditLogger(logger zerolog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		logger.Info().
			Str("event", string(event.Type)).
			Int64("promotion_id", event.PromotionID).
			Time("at", event.Timestamp).
			Msg("promotion event")
		return nil
	}
}

// Wait blocks until every in-flight handler has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown stops accepting events and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}
