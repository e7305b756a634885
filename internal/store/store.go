// Package store defines the document store the sync engine talks to:
// per-document subscribe-with-snapshot, per-field merge writes, and
// append-new into collections. The store is eventually consistent and
// last-write-wins per field; everything above it is written to tolerate
// replayed or duplicated snapshots.
package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by writes against a store that has been shut down.
	ErrClosed = errors.New("store is closed")
	// ErrBadPath is returned for paths that do not address a document or
	// collection in the rooms hierarchy.
	ErrBadPath = errors.New("malformed document path")
)

// Snapshot is one observation of a document: either its current field map or
// the fact that it does not exist.
type Snapshot struct {
	Path   string
	Exists bool
	Fields map[string]any
}

// Query shapes a collection subscription. Only a single order-by field is
// supported; richer composite orderings are applied client-side after the
// snapshot arrives (see session.Synchronizer).
type Query struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the only interface the engine uses to reach shared state.
type Store interface {
	// Subscribe opens a stream over one document. The first snapshot
	// reports current state (existing or not); later snapshots arrive in
	// write order for that document.
	Subscribe(path string) (*DocSub, error)
	// SubscribeQuery opens a stream over a collection; every change to any
	// member re-emits the full ordered result set.
	SubscribeQuery(collection string, q Query) (*QuerySub, error)
	// WriteMerge merges fields into the document, creating it if absent.
	// A field present in the write replaces the stored value wholesale.
	WriteMerge(path string, fields map[string]any) error
	// AppendNew creates a document with a generated id inside collection
	// and returns the id.
	AppendNew(collection string, fields map[string]any) (string, error)
}

// DocSub streams snapshots of a single document. Snapshots is closed after
// Close, or after a transport failure; in the failure case Err reports it.
// A failed subscription is terminal: recovery means opening a new one.
type DocSub struct {
	Snapshots <-chan Snapshot

	feed *feed[Snapshot]
}

// Close tears the subscription down. Idempotent. Snapshots already queued
// are discarded, not delivered.
func (s *DocSub) Close() { s.feed.close(nil) }

// Err reports the transport failure that ended the stream, if any.
func (s *DocSub) Err() error { return s.feed.error() }

// QuerySub streams ordered result sets of a collection query.
type QuerySub struct {
	Results <-chan []Snapshot

	feed *feed[[]Snapshot]
}

func (s *QuerySub) Close() { s.feed.close(nil) }

func (s *QuerySub) Err() error { return s.feed.error() }

// feed is an unbounded in-order delivery queue with a single consumer
// channel. Writers never block on slow subscribers.
type feed[T any] struct {
	mu      sync.Mutex
	buf     []T
	closed  bool
	err     error
	wake    chan struct{}
	done    chan struct{}
	out     chan T
	onClose func()
}

func newFeed[T any](onClose func()) *feed[T] {
	f := &feed[T]{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		out:     make(chan T),
		onClose: onClose,
	}
	go f.pump()
	return f
}

func (f *feed[T]) push(item T) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.buf = append(f.buf, item)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *feed[T]) pump() {
	for {
		f.mu.Lock()
		if len(f.buf) == 0 {
			if f.closed {
				f.mu.Unlock()
				close(f.out)
				return
			}
			f.mu.Unlock()
			select {
			case <-f.wake:
			case <-f.done:
			}
			continue
		}
		item := f.buf[0]
		f.buf = f.buf[1:]
		closed := f.closed
		f.mu.Unlock()
		if closed {
			// Tear-down discards queued snapshots immediately.
			continue
		}
		select {
		case f.out <- item:
		case <-f.done:
			close(f.out)
			return
		}
	}
}

func (f *feed[T]) close(err error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.err = err
	f.buf = nil
	onClose := f.onClose
	f.mu.Unlock()
	close(f.done)
	select {
	case f.wake <- struct{}{}:
	default:
	}
	if onClose != nil {
		onClose()
	}
}

func (f *feed[T]) error() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// cloneFields deep-copies a field map so snapshots handed to subscribers
// never alias store-internal state.
func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneFields(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// compareField orders two field values for query sorting. Missing values
// sort first; mixed types fall back to a stable but arbitrary order.
func compareField(a, b any) int {
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := toFloat(b); ok {
			av64 := av
			switch {
			case av64 < bv:
				return -1
			case av64 > bv:
				return 1
			}
			return 0
		}
	case int:
		if bv, ok := toFloat(b); ok {
			return compareField(float64(av), bv)
		}
	case int64:
		if bv, ok := toFloat(b); ok {
			return compareField(float64(av), bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	}
	if b == nil {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint32:
		return float64(val), true
	}
	return 0, false
}
