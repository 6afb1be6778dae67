package firesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pusher drives one-way replication of an authoritative collection into the
// replica store in size-bounded batches.
type Pusher struct {
	store DocumentStore
	cfg   Config
	log   *slog.Logger
}

// NewPusher creates a push syncer. If logger is nil the default slog logger
// is used.
func NewPusher(store DocumentStore, cfg Config, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{store: store, cfg: cfg.withDefaults(), log: logger}
}

// PushCollection mirrors items into the replica collection for entity.
//
// The run reads one full snapshot of the collection up front so the mapper
// can preserve replica-owned fields against a consistent baseline, then
// writes upsert-merge batches of at most Config.MaxBatchSize documents.
// A record that fails mapping is counted failed and excluded before
// batching; a failed batch commit counts every document in that batch as
// failed and the run continues with the next batch. Batch commits run
// concurrently across at most Config.Workers goroutines; chunks hold
// disjoint ids (items are de-duplicated first, last occurrence wins), so
// concurrent commits never touch the same document.
//
// Re-running with identical items leaves every document's business fields
// unchanged; only updatedAt and lastSyncedAt advance.
//
// A non-nil error means the run itself failed (snapshot unreadable, or the
// context was cancelled); the returned counts still reflect whatever was
// committed before the failure. Cancellation takes effect at batch
// boundaries: uncommitted batches count as failed.
func (p *Pusher) PushCollection(ctx context.Context, entity EntityType, items []Entity) (Result, error) {
	coll := entity.Collection()
	started := time.Now()

	existing, err := p.snapshot(ctx, coll)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read %s snapshot: %w", coll, err)
	}

	now := time.Now()
	docs, mapFailed := p.prepare(entity, items, existing, now)

	var success, failed atomic.Int64
	failed.Add(int64(mapFailed))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)
	for _, chunk := range chunkDocs(docs, p.cfg.MaxBatchSize) {
		chunk := chunk
		g.Go(func() error {
			if ctx.Err() != nil {
				failed.Add(int64(len(chunk)))
				return nil
			}
			cctx, cancel := context.WithTimeout(ctx, p.cfg.OpTimeout)
			defer cancel()
			if err := p.store.BatchSetMerge(cctx, coll, chunk); err != nil {
				failed.Add(int64(len(chunk)))
				batchErr := &BatchError{Entity: entity, Size: len(chunk), Err: err}
				p.log.Error("batch commit failed",
					"collection", coll, "size", len(chunk), "error", batchErr)
				return nil
			}
			success.Add(int64(len(chunk)))
			return nil
		})
	}
	g.Wait()

	res := Result{Success: int(success.Load()), Failed: int(failed.Load())}
	if err := ctx.Err(); err != nil {
		p.log.Warn("push cancelled",
			"collection", coll, "success", res.Success, "failed", res.Failed)
		return res, fmt.Errorf("push of %s cancelled: %w", coll, err)
	}
	p.log.Info("push complete",
		"collection", coll,
		"success", res.Success,
		"failed", res.Failed,
		"duration", time.Since(started))
	return res, nil
}

// snapshot reads the full replica collection into an id lookup table. One
// scan per run keeps point-reads O(1) regardless of input size.
func (p *Pusher) snapshot(ctx context.Context, coll string) (map[string]map[string]interface{}, error) {
	cctx, cancel := context.WithTimeout(ctx, p.cfg.OpTimeout)
	defer cancel()

	docs, err := p.store.ScanAll(cctx, coll)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]map[string]interface{}, len(docs))
	for _, d := range docs {
		existing[d.ID] = d.Data
	}
	return existing, nil
}

// prepare maps items to documents with per-item failure isolation. Failed
// records never consume a batch slot. Duplicate ids collapse to the last
// occurrence so chunks stay disjoint.
func (p *Pusher) prepare(entity EntityType, items []Entity, existing map[string]map[string]interface{}, now time.Time) ([]Document, int) {
	docs := make([]Document, 0, len(items))
	index := make(map[string]int, len(items))
	failed := 0

	for _, item := range items {
		id := item.EntityID()
		data, err := item.ReplicaDoc(existing[id], now)
		if err != nil {
			failed++
			p.log.Warn("skipping unmappable record",
				"collection", entity.Collection(), "id", id, "error", err)
			continue
		}
		if pos, ok := index[id]; ok {
			docs[pos] = Document{ID: id, Data: data}
			continue
		}
		index[id] = len(docs)
		docs = append(docs, Document{ID: id, Data: data})
	}
	return docs, failed
}

func chunkDocs(docs []Document, size int) [][]Document {
	var chunks [][]Document
	for len(docs) > size {
		chunks = append(chunks, docs[:size])
		docs = docs[size:]
	}
	if len(docs) > 0 {
		chunks = append(chunks, docs)
	}
	return chunks
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
