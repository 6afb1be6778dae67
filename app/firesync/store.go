// Package firesync keeps the Firestore replica used by the teacher mobile
// app in sync with the school's PostgreSQL database. Pushes mirror teachers,
// students, classes and subjects into the replica; pulls drain attendance and
// results recorded offline back into PostgreSQL.
package firesync

import (
	"context"
	"time"
)

// EntityType identifies a synced collection. The value doubles as the
// Firestore collection name.
type EntityType string

const (
	EntityTeachers   EntityType = "teachers"
	EntityStudents   EntityType = "students"
	EntityClasses    EntityType = "classes"
	EntitySubjects   EntityType = "subjects"
	EntityAttendance EntityType = "attendance"
	EntityResults    EntityType = "results"
)

// Collection returns the replica collection name for the entity type.
func (e EntityType) Collection() string {
	return string(e)
}

// Valid reports whether e is one of the known synced collections.
func (e EntityType) Valid() bool {
	switch e {
	case EntityTeachers, EntityStudents, EntityClasses, EntitySubjects,
		EntityAttendance, EntityResults:
		return true
	}
	return false
}

// Document is a replica document keyed by its authoritative id.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// DocumentStore is the capability surface the sync engine needs from the
// replica store. The production implementation wraps Firestore
// (app/firebase); tests use an in-memory fake. All methods block on network
// I/O and must be called with a deadline-carrying context.
type DocumentStore interface {
	// Get returns the document data, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]interface{}, error)

	// SetMerge creates the document if absent or shallow-merges fields
	// into it if present. It never replaces the document wholesale.
	SetMerge(ctx context.Context, collection, id string, data map[string]interface{}) error

	// Update sets the given fields on an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error

	// Delete removes a single document. Deleting an absent document is
	// not an error.
	Delete(ctx context.Context, collection, id string) error

	// ScanAll reads every document in the collection.
	ScanAll(ctx context.Context, collection string) ([]Document, error)

	// QueryEqual returns the documents where field == value.
	QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]Document, error)

	// BatchSetMerge applies SetMerge to every document in one atomic
	// batch. Callers must keep batches within the store's write limit.
	BatchSetMerge(ctx context.Context, collection string, docs []Document) error

	// BatchUpdate sets the same fields on every listed document in one
	// atomic batch.
	BatchUpdate(ctx context.Context, collection string, ids []string, fields map[string]interface{}) error

	// BatchDelete removes every listed document in one atomic batch.
	BatchDelete(ctx context.Context, collection string, ids []string) error

	// NewDocID reserves a store-generated document id without writing.
	NewDocID(collection string) string
}

// Config carries the sync engine tunables.
type Config struct {
	// MaxBatchSize caps documents per atomic batch write. Firestore
	// rejects batches above 500 writes.
	MaxBatchSize int

	// Workers bounds concurrent batch commits within one run.
	Workers int

	// OpTimeout is the deadline applied to each individual store call.
	OpTimeout time.Duration
}

// DefaultConfig returns the tunables used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize: 500,
		Workers:      4,
		OpTimeout:    30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = def.OpTimeout
	}
	return c
}

// Result aggregates per-run outcome counts.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
