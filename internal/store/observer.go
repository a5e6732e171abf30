package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// observerRegistry tracks live subscriptions keyed by the tables their query
// reads. Every committed write walks the registry and wakes intersecting
// subscriptions; re-evaluation happens on the subscription's own goroutine so
// deliveries never interleave.
type observerRegistry struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscription
	nextID      int64
}

type subscription struct {
	id     int64
	tables map[string]struct{}

	// wake has capacity one so back-to-back writes coalesce into a single
	// re-evaluation instead of queueing.
	wake chan struct{}
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{
		subscribers: make(map[int64]*subscription),
	}
}

func (r *observerRegistry) register(tables []string) *subscription {
	sub := &subscription{
		tables: make(map[string]struct{}, len(tables)),
		wake:   make(chan struct{}, 1),
	}
	for _, table := range tables {
		sub.tables[table] = struct{}{}
	}

	r.mu.Lock()
	r.nextID++
	sub.id = r.nextID
	r.subscribers[sub.id] = sub
	r.mu.Unlock()

	return sub
}

func (r *observerRegistry) unregister(id int64) {
	r.mu.Lock()
	delete(r.subscribers, id)
	r.mu.Unlock()
}

func (r *observerRegistry) publish(tables ...string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subscribers {
		for _, table := range tables {
			if _, ok := sub.tables[table]; !ok {
				continue
			}
			select {
			case sub.wake <- struct{}{}:
			default:
			}
			break
		}
	}
}

// observeQuery is the shared observation loop behind Observe and the
// composite-view observers. The subscription registers before the initial
// result is computed, so a write committing during the initial evaluation
// leaves a pending wake-up and triggers a re-run instead of being lost. The
// initial result set is delivered synchronously; afterwards one goroutine per
// subscription re-runs the query on every wake-up and delivers result sets in
// order. A failed re-evaluation is logged and the previous result stands.
func observeQuery[T any](ctx context.Context, m *Manager, operation string, tables []string, run func(context.Context) ([]T, error)) (<-chan []T, context.CancelFunc, error) {
	sub := m.observers.register(tables)

	initial, err := run(ctx)
	if err != nil {
		m.observers.unregister(sub.id)
		m.logError(operation, reasonQueryFailed, err)
		return nil, nil, newStoreError(operation, reasonQueryFailed, err)
	}

	stream := make(chan []T, 1)
	stream <- initial

	obsCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(stream)
		defer m.observers.unregister(sub.id)

		for {
			select {
			case <-obsCtx.Done():
				return
			case <-sub.wake:
			}

			results, err := run(obsCtx)
			if err != nil {
				if obsCtx.Err() != nil {
					return
				}
				m.logError(operation, reasonQueryFailed, err, zap.Int64("subscription", sub.id))
				continue
			}

			select {
			case stream <- results:
			case <-obsCtx.Done():
				return
			}
		}
	}()

	return stream, cancel, nil
}
