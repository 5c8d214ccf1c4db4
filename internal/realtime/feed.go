// Package realtime turns store writes into live query results. Stores call
// Publish after every committed write to a collection; each Watch re-runs its
// query and pushes the full result to its callback.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Disposer stops a live query. Calling it more than once is safe.
type Disposer func()

type watcher struct {
	notify chan struct{}
}

type Feed struct {
	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
	logger   *zap.Logger
}

func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		watchers: make(map[string]map[*watcher]struct{}),
		logger:   logger,
	}
}

// Publish wakes every watcher of the collection. It never blocks: a watcher
// that has not yet consumed the previous wake-up simply re-queries once.
func (f *Feed) Publish(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for w := range f.watchers[collection] {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// Watchers returns the number of live queries on a collection.
func (f *Feed) Watchers(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers[collection])
}

func (f *Feed) add(collection string, w *watcher) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set, ok := f.watchers[collection]
	if !ok {
		set = make(map[*watcher]struct{})
		f.watchers[collection] = set
	}
	set[w] = struct{}{}
}

func (f *Feed) remove(collection string, w *watcher) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.watchers[collection], w)
	if len(f.watchers[collection]) == 0 {
		delete(f.watchers, collection)
	}
}

// Query produces the current result of a live query.
type Query[T any] func(ctx context.Context) (T, error)

// Watch runs query once immediately and again after every Publish on
// collection, handing each result to onChange and each failure to onError.
// Callbacks for one watch are never invoked concurrently.
func Watch[T any](f *Feed, collection string, query Query[T], onChange func(T), onError func(error)) Disposer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{notify: make(chan struct{}, 1)}
	w.notify <- struct{}{}
	f.add(collection, w)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
			}

			res, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				f.logger.Warn("live query failed", zap.String("collection", collection), zap.Error(err))
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(res)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.remove(collection, w)
			cancel()
			<-done
		})
	}
}
