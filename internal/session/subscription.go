package session

import (
	"sync"

	"partydeck/internal/store"
)

// State is the lifecycle of one subscription instance.
//
//	Unsubscribed -> Loading -> Live -> (Errored | Unsubscribed)
//
// Errored is terminal: there is no automatic retry at this layer, recovery
// means opening a new subscription.
type State int

const (
	Unsubscribed State = iota
	Loading
	Live
	Errored
)

func (s State) String() string {
	switch s {
	case Unsubscribed:
		return "unsubscribed"
	case Loading:
		return "loading"
	case Live:
		return "live"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// DocWatch converts one document's snapshot stream into typed values. The
// first snapshot (present or missing) moves Loading to Live; every later
// snapshot updates in place without leaving Live.
type DocWatch[T any] struct {
	// Updates delivers one value per accepted snapshot, in order. Closed
	// on teardown or transport failure.
	Updates <-chan WatchUpdate[T]

	mu    sync.Mutex
	state State
	err   error
	value T
	ok    bool
	sub   *store.DocSub
	done  chan struct{}
	once  sync.Once
}

// WatchUpdate pairs a decoded value with whether the document existed.
type WatchUpdate[T any] struct {
	Value  T
	Exists bool
}

func watchDoc[T any](st store.Store, path string, decode func(store.Snapshot) (T, bool)) (*DocWatch[T], error) {
	sub, err := st.Subscribe(path)
	if err != nil {
		return nil, err
	}
	updates := make(chan WatchUpdate[T])
	w := &DocWatch[T]{
		Updates: updates,
		state:   Loading,
		sub:     sub,
		done:    make(chan struct{}),
	}
	go w.run(decode, updates)
	return w, nil
}

func (w *DocWatch[T]) run(decode func(store.Snapshot) (T, bool), updates chan WatchUpdate[T]) {
	defer close(updates)
	for snap := range w.sub.Snapshots {
		value, ok := decode(snap)
		w.mu.Lock()
		if w.state == Unsubscribed {
			w.mu.Unlock()
			return
		}
		w.state = Live
		w.value = value
		w.ok = ok
		w.mu.Unlock()
		select {
		case updates <- WatchUpdate[T]{Value: value, Exists: ok}:
		case <-w.done:
			return
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Unsubscribed {
		return
	}
	if err := w.sub.Err(); err != nil {
		w.state = Errored
		w.err = err
		return
	}
	w.state = Unsubscribed
}

// Close tears the watch down. Snapshots already in flight become irrelevant:
// they are never applied after Close returns.
func (w *DocWatch[T]) Close() {
	w.mu.Lock()
	w.state = Unsubscribed
	w.mu.Unlock()
	w.once.Do(func() { close(w.done) })
	w.sub.Close()
}

func (w *DocWatch[T]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *DocWatch[T]) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Current returns the latest decoded value and whether the document existed
// in the latest snapshot.
func (w *DocWatch[T]) Current() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, w.ok
}

// QueryWatch is the collection counterpart: every snapshot is the full
// ordered result set, decoded and optionally re-sorted client-side.
type QueryWatch[T any] struct {
	Updates <-chan []T

	mu    sync.Mutex
	state State
	err   error
	value []T
	sub   *store.QuerySub
	done  chan struct{}
	once  sync.Once
}

func watchQuery[T any](st store.Store, collection string, q store.Query, decode func([]store.Snapshot) []T) (*QueryWatch[T], error) {
	sub, err := st.SubscribeQuery(collection, q)
	if err != nil {
		return nil, err
	}
	updates := make(chan []T)
	w := &QueryWatch[T]{
		Updates: updates,
		state:   Loading,
		sub:     sub,
		done:    make(chan struct{}),
	}
	go w.run(decode, updates)
	return w, nil
}

func (w *QueryWatch[T]) run(decode func([]store.Snapshot) []T, updates chan []T) {
	defer close(updates)
	for docs := range w.sub.Results {
		value := decode(docs)
		w.mu.Lock()
		if w.state == Unsubscribed {
			w.mu.Unlock()
			return
		}
		w.state = Live
		w.value = value
		w.mu.Unlock()
		select {
		case updates <- value:
		case <-w.done:
			return
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Unsubscribed {
		return
	}
	if err := w.sub.Err(); err != nil {
		w.state = Errored
		w.err = err
		return
	}
	w.state = Unsubscribed
}

func (w *QueryWatch[T]) Close() {
	w.mu.Lock()
	w.state = Unsubscribed
	w.mu.Unlock()
	w.once.Do(func() { close(w.done) })
	w.sub.Close()
}

func (w *QueryWatch[T]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *QueryWatch[T]) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *QueryWatch[T]) Current() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}
