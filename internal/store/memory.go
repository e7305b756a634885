package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs tests and single-node deployments
// where the gateway hosts the shared documents itself.
type Memory struct {
	mu        sync.Mutex
	closed    bool
	docs      map[string]map[string]any
	docSubs   map[string]map[*DocSub]struct{}
	querySubs map[string]map[*QuerySub]Query
}

func NewMemory() *Memory {
	return &Memory{
		docs:      make(map[string]map[string]any),
		docSubs:   make(map[string]map[*DocSub]struct{}),
		querySubs: make(map[string]map[*QuerySub]Query),
	}
}

func (m *Memory) Subscribe(path string) (*DocSub, error) {
	if !ValidDocPath(path) {
		return nil, ErrBadPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	sub := &DocSub{}
	sub.feed = newFeed[Snapshot](func() { m.dropDocSub(path, sub) })
	sub.Snapshots = sub.feed.out

	group := m.docSubs[path]
	if group == nil {
		group = make(map[*DocSub]struct{})
		m.docSubs[path] = group
	}
	group[sub] = struct{}{}

	sub.feed.push(m.snapshotLocked(path))
	return sub, nil
}

func (m *Memory) SubscribeQuery(collection string, q Query) (*QuerySub, error) {
	if !ValidCollectionPath(collection) {
		return nil, ErrBadPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	sub := &QuerySub{}
	sub.feed = newFeed[[]Snapshot](func() { m.dropQuerySub(collection, sub) })
	sub.Results = sub.feed.out

	group := m.querySubs[collection]
	if group == nil {
		group = make(map[*QuerySub]Query)
		m.querySubs[collection] = group
	}
	group[sub] = q

	sub.feed.push(m.queryLocked(collection, q))
	return sub, nil
}

func (m *Memory) WriteMerge(path string, fields map[string]any) error {
	if !ValidDocPath(path) {
		return ErrBadPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	doc := m.docs[path]
	if doc == nil {
		doc = make(map[string]any, len(fields))
		m.docs[path] = doc
	}
	for k, v := range fields {
		doc[k] = cloneValue(v)
	}
	m.notifyLocked(path)
	return nil
}

func (m *Memory) AppendNew(collection string, fields map[string]any) (string, error) {
	if !ValidCollectionPath(collection) {
		return "", ErrBadPath
	}
	id := uuid.NewString()
	if err := m.WriteMerge(collection+"/"+id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Close fails every open subscription and rejects further writes.
func (m *Memory) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var subs []*DocSub
	for _, group := range m.docSubs {
		for sub := range group {
			subs = append(subs, sub)
		}
	}
	var qsubs []*QuerySub
	for _, group := range m.querySubs {
		for sub := range group {
			qsubs = append(qsubs, sub)
		}
	}
	m.mu.Unlock()
	for _, sub := range subs {
		sub.feed.close(ErrClosed)
	}
	for _, sub := range qsubs {
		sub.feed.close(ErrClosed)
	}
}

func (m *Memory) dropDocSub(path string, sub *DocSub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group := m.docSubs[path]
	delete(group, sub)
	if len(group) == 0 {
		delete(m.docSubs, path)
	}
}

func (m *Memory) dropQuerySub(collection string, sub *QuerySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group := m.querySubs[collection]
	delete(group, sub)
	if len(group) == 0 {
		delete(m.querySubs, collection)
	}
}

func (m *Memory) snapshotLocked(path string) Snapshot {
	doc, ok := m.docs[path]
	if !ok {
		return Snapshot{Path: path, Exists: false}
	}
	return Snapshot{Path: path, Exists: true, Fields: cloneFields(doc)}
}

func (m *Memory) queryLocked(collection string, q Query) []Snapshot {
	prefix := collection + "/"
	var docs []Snapshot
	for path := range m.docs {
		if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
			continue
		}
		// Direct children only; sub-collection documents have further
		// slashes past the prefix.
		if strings.IndexByte(path[len(prefix):], '/') >= 0 {
			continue
		}
		docs = append(docs, m.snapshotLocked(path))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy == "" {
			return docs[i].Path < docs[j].Path
		}
		cmp := compareField(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
		if cmp == 0 {
			return docs[i].Path < docs[j].Path
		}
		if q.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

func (m *Memory) notifyLocked(path string) {
	for sub := range m.docSubs[path] {
		sub.feed.push(m.snapshotLocked(path))
	}
	collection, ok := ParentCollection(path)
	if !ok {
		return
	}
	for sub, q := range m.querySubs[collection] {
		sub.feed.push(m.queryLocked(collection, q))
	}
}
