package eventbus

import (
	"sync"
	"time"

	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/logger"
)

// Publisher defines the interface for publishing events.
// This interface enables testing with mock implementations.
type Publisher interface {
	Publish(event domain.Event) error
	Subscribe(eventType domain.EventType, handler func(domain.Event))
}

// Ensure EventBus implements Publisher
var _ Publisher = (*EventBus)(nil)

// DefaultHistorySize is the number of recent events kept for late joiners.
const DefaultHistorySize = 200

// subscriberBuffer is the per-subscriber channel size; a full buffer drops events.
const subscriberBuffer = 100

// EventBus is an in-memory fan-out of domain events. Nothing is persisted:
// the recent-event ring only lives for the process lifetime.
type EventBus struct {
	subscribers map[domain.EventType][]chan domain.Event
	mu          sync.RWMutex
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	historyMu sync.Mutex
	history   []domain.Event
	historyN  int
	nextID    int64
	dropped   uint64
}

// NewEventBus creates an event bus keeping the last historySize events.
func NewEventBus(historySize ...int) *EventBus {
	n := DefaultHistorySize
	if len(historySize) > 0 && historySize[0] > 0 {
		n = historySize[0]
	}
	return &EventBus{
		subscribers: make(map[domain.EventType][]chan domain.Event),
		stopChan:    make(chan struct{}),
		historyN:    n,
	}
}

func (eb *EventBus) Publish(event domain.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	eb.historyMu.Lock()
	eb.nextID++
	event.ID = eb.nextID
	eb.history = append(eb.history, event)
	if len(eb.history) > eb.historyN {
		eb.history = eb.history[len(eb.history)-eb.historyN:]
	}
	eb.historyMu.Unlock()

	logger.Debugf("EventBus: Publishing event %s (ID: %d, AggregateID: %s)", event.EventType, event.ID, event.AggregateID)

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[event.EventType] {
		select {
		case ch <- event:
		default:
			// Non-blocking, drop if buffer full to prevent blocking the publisher
			eb.historyMu.Lock()
			eb.dropped++
			eb.historyMu.Unlock()
		}
	}

	return nil
}

func (eb *EventBus) Subscribe(eventType domain.EventType, handler func(domain.Event)) {
	ch := make(chan domain.Event, subscriberBuffer)

	eb.mu.Lock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	eb.mu.Unlock()

	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		for {
			select {
			case event := <-ch:
				handler(event)
			case <-eb.stopChan:
				return
			}
		}
	}()
}

// SubscribeMany registers the same handler for several event types.
func (eb *EventBus) SubscribeMany(types []domain.EventType, handler func(domain.Event)) {
	for _, t := range types {
		eb.Subscribe(t, handler)
	}
}

// Recent returns up to limit of the most recent events, oldest first.
// A non-positive limit returns the whole history.
func (eb *EventBus) Recent(limit int) []domain.Event {
	eb.historyMu.Lock()
	defer eb.historyMu.Unlock()

	start := 0
	if limit > 0 && len(eb.history) > limit {
		start = len(eb.history) - limit
	}
	out := make([]domain.Event, len(eb.history)-start)
	copy(out, eb.history[start:])
	return out
}

// Dropped returns how many deliveries were dropped because a subscriber was behind.
func (eb *EventBus) Dropped() uint64 {
	eb.historyMu.Lock()
	defer eb.historyMu.Unlock()
	return eb.dropped
}

// Shutdown stops all subscriber goroutines and waits for them to finish.
// Safe to call more than once.
func (eb *EventBus) Shutdown() {
	eb.stopOnce.Do(func() {
		close(eb.stopChan)
	})
	eb.wg.Wait()
	logger.Infof("EventBus shutdown complete")
}
