package events

import (
	"sync"
	"sync/atomic"

	"github.com/ashgrove/medialib/internal/logger"
)

// Bus is a buffered, asynchronous publish/subscribe event bus, grounded in
// style on the teacher's SystemEventBus but stripped of its storage and
// metrics subsystems — nothing here needs event persistence or querying,
// only live relay to subscribers.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[int64]Handler
	nextID        int64

	eventCh chan Event
	stopCh  chan struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewBus creates a Bus with the given channel buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscriptions: make(map[int64]Handler),
		eventCh:       make(chan Event, bufferSize),
	}
}

// Start begins dispatching published events to subscribers. Idempotent.
func (b *Bus) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	b.stopCh = make(chan struct{})
	b.wg.Add(1)
	go b.dispatchLoop()
}

// Stop halts dispatch and waits for the dispatch loop to exit; events still
// buffered at that point are not delivered.
func (b *Bus) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	close(b.stopCh)
	b.wg.Wait()
}

func (b *Bus) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.eventCh:
			b.mu.RLock()
			handlers := make([]Handler, 0, len(b.subscriptions))
			for _, h := range b.subscriptions {
				handlers = append(handlers, h)
			}
			b.mu.RUnlock()
			for _, h := range handlers {
				h(event)
			}
		case <-b.stopCh:
			return
		}
	}
}

// Publish enqueues event for dispatch, dropping it silently if the bus is
// not running and with a warning if the buffer is full — event delivery to the
// websocket relay is best-effort, not a correctness requirement.
func (b *Bus) Publish(event Event) {
	if !b.running.Load() {
		return
	}
	select {
	case b.eventCh <- event:
	default:
		logger.Warn("event bus buffer full, dropping event", logger.String("type", string(event.Type)))
	}
}

// Subscribe registers handler for every event published while the bus is
// running. The returned func unsubscribes.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscriptions[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscriptions, id)
		b.mu.Unlock()
	}
}
