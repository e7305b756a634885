package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"partydeck/internal/db"
)

// Gorm is the Postgres-backed Store. Documents live whole in a JSONB column;
// merge writes are read-modify-write under a row lock. Fanout to subscribers
// is in-process: a single gateway hosts the store and all its watchers.
type Gorm struct {
	conn *gorm.DB

	mu        sync.Mutex
	closed    bool
	docSubs   map[string]map[*DocSub]struct{}
	querySubs map[string]map[*QuerySub]Query
}

func NewGorm(conn *gorm.DB) *Gorm {
	return &Gorm{
		conn:      conn,
		docSubs:   make(map[string]map[*DocSub]struct{}),
		querySubs: make(map[string]map[*QuerySub]Query),
	}
}

func (g *Gorm) Subscribe(path string) (*DocSub, error) {
	if !ValidDocPath(path) {
		return nil, ErrBadPath
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrClosed
	}
	snap, err := g.readSnapshot(path)
	if err != nil {
		return nil, err
	}

	sub := &DocSub{}
	sub.feed = newFeed[Snapshot](func() { g.dropDocSub(path, sub) })
	sub.Snapshots = sub.feed.out

	group := g.docSubs[path]
	if group == nil {
		group = make(map[*DocSub]struct{})
		g.docSubs[path] = group
	}
	group[sub] = struct{}{}
	sub.feed.push(snap)
	return sub, nil
}

func (g *Gorm) SubscribeQuery(collection string, q Query) (*QuerySub, error) {
	if !ValidCollectionPath(collection) {
		return nil, ErrBadPath
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrClosed
	}
	docs, err := g.readCollection(collection, q)
	if err != nil {
		return nil, err
	}

	sub := &QuerySub{}
	sub.feed = newFeed[[]Snapshot](func() { g.dropQuerySub(collection, sub) })
	sub.Results = sub.feed.out

	group := g.querySubs[collection]
	if group == nil {
		group = make(map[*QuerySub]Query)
		g.querySubs[collection] = group
	}
	group[sub] = q
	sub.feed.push(docs)
	return sub, nil
}

// WriteMerge holds the store mutex across the transaction so subscribers
// observe writes to one document in commit order.
func (g *Gorm) WriteMerge(path string, fields map[string]any) error {
	if !ValidDocPath(path) {
		return ErrBadPath
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if err := g.mergeRow(path, fields); err != nil {
		return err
	}
	g.notifyLocked(path)
	return nil
}

func (g *Gorm) AppendNew(collection string, fields map[string]any) (string, error) {
	if !ValidCollectionPath(collection) {
		return "", ErrBadPath
	}
	id := uuid.NewString()
	if err := g.WriteMerge(collection+"/"+id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Close fails open subscriptions; the database connection itself is owned by
// the caller.
func (g *Gorm) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	var subs []*DocSub
	for _, group := range g.docSubs {
		for sub := range group {
			subs = append(subs, sub)
		}
	}
	var qsubs []*QuerySub
	for _, group := range g.querySubs {
		for sub := range group {
			qsubs = append(qsubs, sub)
		}
	}
	g.mu.Unlock()
	for _, sub := range subs {
		sub.feed.close(ErrClosed)
	}
	for _, sub := range qsubs {
		sub.feed.close(ErrClosed)
	}
}

func (g *Gorm) mergeRow(path string, fields map[string]any) error {
	collection, _ := ParentCollection(path)
	return g.conn.Transaction(func(tx *gorm.DB) error {
		var row db.Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "path = ?", path).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			encoded, encodeErr := encodeFields(fields)
			if encodeErr != nil {
				return encodeErr
			}
			now := time.Now().UTC()
			return tx.Create(&db.Document{
				Path:       path,
				Collection: collection,
				Fields:     encoded,
				CreatedAt:  now,
				UpdatedAt:  now,
			}).Error
		case err != nil:
			return err
		}

		merged, err := decodeFields(row.Fields)
		if err != nil {
			return err
		}
		for k, v := range fields {
			merged[k] = v
		}
		encoded, err := encodeFields(merged)
		if err != nil {
			return err
		}
		row.Fields = encoded
		row.UpdatedAt = time.Now().UTC()
		return tx.Save(&row).Error
	})
}

func (g *Gorm) readSnapshot(path string) (Snapshot, error) {
	var row db.Document
	err := g.conn.First(&row, "path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{Path: path, Exists: false}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read document: %w", err)
	}
	fields, err := decodeFields(row.Fields)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, Exists: true, Fields: fields}, nil
}

func (g *Gorm) readCollection(collection string, q Query) ([]Snapshot, error) {
	var rows []db.Document
	if err := g.conn.Where("collection = ?", collection).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	docs := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Snapshot{Path: row.Path, Exists: true, Fields: fields})
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
	return docs, nil
}

func (g *Gorm) notifyLocked(path string) {
	if snap, err := g.readSnapshot(path); err == nil {
		for sub := range g.docSubs[path] {
			sub.feed.push(snap)
		}
	}
	collection, ok := ParentCollection(path)
	if !ok {
		return
	}
	for sub, q := range g.querySubs[collection] {
		if docs, err := g.readCollection(collection, q); err == nil {
			sub.feed.push(docs)
		}
	}
}

func (g *Gorm) dropDocSub(path string, sub *DocSub) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group := g.docSubs[path]
	delete(group, sub)
	if len(group) == 0 {
		delete(g.docSubs, path)
	}
}

func (g *Gorm) dropQuerySub(collection string, sub *QuerySub) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group := g.querySubs[collection]
	delete(group, sub)
	if len(group) == 0 {
		delete(g.querySubs, collection)
	}
}

func encodeFields(fields map[string]any) (datatypes.JSON, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document fields: %w", err)
	}
	return datatypes.JSON(data), nil
}

func decodeFields(raw datatypes.JSON) (map[string]any, error) {
	fields := make(map[string]any)
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document fields: %w", err)
	}
	return fields, nil
}
