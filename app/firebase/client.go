// Package firebase provides the Firestore-backed implementation of the
// sync engine's DocumentStore.
package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"al-huda-school/app/firesync"
)

// Store wraps a Firestore client behind the firesync.DocumentStore
// interface. Construct one in main and pass it down; it owns the client's
// lifecycle.
type Store struct {
	client *firestore.Client
}

var _ firesync.DocumentStore = (*Store)(nil)

// NewStore connects to the Firestore project. credentialsFile may be empty
// to use application default credentials.
func NewStore(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, firesync.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap.Data(), nil
}

func (s *Store) SetMerge(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, data, firestore.MergeAll)
	return err
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, toUpdates(fields))
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (s *Store) ScanAll(ctx context.Context, collection string) ([]firesync.Document, error) {
	return drainIterator(s.client.Collection(collection).Documents(ctx))
}

func (s *Store) QueryEqual(ctx context.Context, collection, field string, value interface{}) ([]firesync.Document, error) {
	return drainIterator(s.client.Collection(collection).Where(field, "==", value).Documents(ctx))
}

func (s *Store) BatchSetMerge(ctx context.Context, collection string, docs []firesync.Document) error {
	batch := s.client.Batch()
	coll := s.client.Collection(collection)
	for _, d := range docs {
		batch.Set(coll.Doc(d.ID), d.Data, firestore.MergeAll)
	}
	_, err := batch.Commit(ctx)
	return err
}

func (s *Store) BatchUpdate(ctx context.Context, collection string, ids []string, fields map[string]interface{}) error {
	batch := s.client.Batch()
	coll := s.client.Collection(collection)
	updates := toUpdates(fields)
	for _, id := range ids {
		batch.Update(coll.Doc(id), updates)
	}
	_, err := batch.Commit(ctx)
	return err
}

func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	batch := s.client.Batch()
	coll := s.client.Collection(collection)
	for _, id := range ids {
		batch.Delete(coll.Doc(id))
	}
	_, err := batch.Commit(ctx)
	return err
}

func (s *Store) NewDocID(collection string) string {
	return s.client.Collection(collection).NewDoc().ID
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	return updates
}

func drainIterator(iter *firestore.DocumentIterator) ([]firesync.Document, error) {
	defer iter.Stop()

	var docs []firesync.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, firesync.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}
