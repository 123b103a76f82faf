package history

import (
	"sync"

	"go.uber.org/zap"
)

const (
	// eventQueueSize bounds the tracker queue. When full, events are
	// dropped rather than blocking the request path.
	eventQueueSize = 256
)

// Tracker writes analytics events in the background so the request path
// never waits on the database.
type Tracker struct {
	store    *Store
	logger   *zap.Logger
	events   chan func()
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTracker starts a background tracker over the given store.
func NewTracker(store *Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		store:    store,
		logger:   logger,
		events:   make(chan func(), eventQueueSize),
		stopChan: make(chan struct{}),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// TrackSelection queues a selection event (non-blocking).
func (t *Tracker) TrackSelection(event SelectionEvent) {
	t.enqueue(func() { t.store.RecordSelection(event) })
}

// TrackSearch queues a search event (non-blocking).
func (t *Tracker) TrackSearch(event SearchEvent) {
	t.enqueue(func() { t.store.RecordSearch(event) })
}

func (t *Tracker) enqueue(write func()) {
	if !t.store.Enabled() {
		return
	}
	select {
	case t.events <- write:
	default:
		t.logger.Warn("history queue full, dropping event")
	}
}

// Stop drains the queue and shuts the tracker down.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

func (t *Tracker) run() {
	defer t.wg.Done()
	for {
		select {
		case write := <-t.events:
			write()
		case <-t.stopChan:
			// Drain whatever is queued before exiting.
			for {
				select {
				case write := <-t.events:
					write()
				default:
					return
				}
			}
		}
	}
}
