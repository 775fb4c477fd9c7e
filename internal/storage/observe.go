package storage

import (
	"context"
	"log/slog"
	"sync"
)

type table string

const (
	tableGoals        table = "goals"
	tableAssets       table = "assets"
	tableTransactions table = "asset_transactions"
	tableAllocations  table = "allocations"
	tableExecutions   table = "execution_records"
)

// watcher fans out change notifications to observers of a table.
type watcher struct {
	subs   map[table]map[int]chan struct{}
	nextID int
	mu     sync.Mutex
}

func newWatcher() *watcher {
	return &watcher{subs: make(map[table]map[int]chan struct{})}
}

func (w *watcher) subscribe(t table) (int, <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	ch := make(chan struct{}, 1)
	if w.subs[t] == nil {
		w.subs[t] = make(map[int]chan struct{})
	}
	w.subs[t][w.nextID] = ch
	return w.nextID, ch
}

func (w *watcher) unsubscribe(t table, id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subs[t], id)
}

// notify marks every observer of the given tables dirty. Pending
// notifications coalesce, so a slow observer reloads once.
func (w *watcher) notify(tables ...table) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range tables {
		for _, ch := range w.subs[t] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

func (w *watcher) subscriberCount(t table) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs[t])
}

// observe emits the current result of load, then reloads and emits again
// whenever t changes. The channel closes when ctx is done.
func observe[T any](ctx context.Context, w *watcher, t table, load func(context.Context) ([]T, error)) (<-chan []T, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	id, changed := w.subscribe(t)

	initial, err := load(ctx)
	if err != nil {
		w.unsubscribe(t, id)
		return nil, err
	}

	out := make(chan []T, 1)
	out <- initial

	go func() {
		defer close(out)
		defer w.unsubscribe(t, id)

		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}

			items, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("observer reload failed", "table", string(t), "error", err)
				continue
			}

			select {
			case out <- items:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
