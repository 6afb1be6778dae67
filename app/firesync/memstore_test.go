package firesync

import (
	"context"
	"fmt"
	"sync"
)

// memStore is an in-memory DocumentStore used across the package tests.
// Failure hooks simulate store outages at the batch and single-delete level.
type memStore struct {
	mu     sync.Mutex
	colls  map[string]map[string]map[string]interface{}
	nextID int

	batchCommits int
	batchErr     func(commit int) error // commit numbers are 1-based
	deleteCalls  int
	deleteErr    func(call int) error
	scanErr      error
}

func newMemStore() *memStore {
	return &memStore{colls: make(map[string]map[string]map[string]interface{})}
}

func (m *memStore) coll(name string) map[string]map[string]interface{} {
	c, ok := m.colls[name]
	if !ok {
		c = make(map[string]map[string]interface{})
		m.colls[name] = c
	}
	return c
}

func (m *memStore) seed(collection, id string, data map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coll(collection)[id] = copyDoc(data)
}

func (m *memStore) docCount(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.coll(collection))
}

func (m *memStore) doc(collection, id string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.coll(collection)[id]
	if !ok {
		return nil
	}
	return copyDoc(d)
}

func (m *memStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.coll(collection)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(d), nil
}

func (m *memStore) SetMerge(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setMergeLocked(collection, id, data)
	return nil
}

func (m *memStore) setMergeLocked(collection, id string, data map[string]interface{}) {
	c := m.coll(collection)
	d, ok := c[id]
	if !ok {
		d = make(map[string]interface{})
		c[id] = d
	}
	for k, v := range copyDoc(data) {
		d[k] = v
	}
}

func (m *memStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.coll(collection)[id]
	if !ok {
		return fmt.Errorf("update of missing document %s/%s", collection, id)
	}
	for k, v := range copyDoc(fields) {
		d[k] = v
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		if err := m.deleteErr(m.deleteCalls); err != nil {
			return err
		}
	}
	delete(m.coll(collection), id)
	return nil
}

func (m *memStore) ScanAll(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var docs []Document
	for id, d := range m.coll(collection) {
		docs = append(docs, Document{ID: id, Data: copyDoc(d)})
	}
	return docs, nil
}

func (m *memStore) QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []Document
	for id, d := range m.coll(collection) {
		if d[field] == value {
			docs = append(docs, Document{ID: id, Data: copyDoc(d)})
		}
	}
	return docs, nil
}

func (m *memStore) BatchSetMerge(ctx context.Context, collection string, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.commitLocked(); err != nil {
		return err
	}
	for _, d := range docs {
		m.setMergeLocked(collection, d.ID, d.Data)
	}
	return nil
}

func (m *memStore) BatchUpdate(ctx context.Context, collection string, ids []string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.commitLocked(); err != nil {
		return err
	}
	c := m.coll(collection)
	for _, id := range ids {
		d, ok := c[id]
		if !ok {
			return fmt.Errorf("batch update of missing document %s/%s", collection, id)
		}
		for k, v := range copyDoc(fields) {
			d[k] = v
		}
	}
	return nil
}

func (m *memStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.commitLocked(); err != nil {
		return err
	}
	c := m.coll(collection)
	for _, id := range ids {
		delete(c, id)
	}
	return nil
}

// commitLocked counts a batch commit and applies the failure hook. A failed
// commit leaves the collection untouched, like a rejected Firestore batch.
func (m *memStore) commitLocked() error {
	m.batchCommits++
	if m.batchErr != nil {
		return m.batchErr(m.batchCommits)
	}
	return nil
}

func (m *memStore) NewDocID(collection string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("%s-%04d", collection, m.nextID)
}

func copyDoc(d map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, v := range d {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyDoc(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}
