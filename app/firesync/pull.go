package firesync

import (
	"context"
	"fmt"
	"log/slog"
)

// Puller drains replica-originated records (attendance, results) that have
// not yet been ingested into the authoritative store.
type Puller struct {
	store DocumentStore
	cfg   Config
	log   *slog.Logger
}

// NewPuller creates a pull syncer. If logger is nil the default slog logger
// is used.
func NewPuller(store DocumentStore, cfg Config, logger *slog.Logger) *Puller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Puller{store: store, cfg: cfg.withDefaults(), log: logger}
}

// DrainUnsynced returns every record in the collection whose syncedToServer
// flag is not true, unmodified. Records missing the flag count as unsynced.
//
// The filter runs client-side over a full scan rather than as a compound
// Firestore query, trading read amplification for not needing a composite
// index at this data volume.
//
// Nothing is flagged here: the caller must durably ingest the records and
// then call Acknowledge with the ids that made it. Marking before ingestion
// would risk silent data loss if ingestion then failed.
func (p *Puller) DrainUnsynced(ctx context.Context, entity EntityType) ([]Document, error) {
	coll := entity.Collection()
	cctx, cancel := context.WithTimeout(ctx, p.cfg.OpTimeout)
	defer cancel()

	docs, err := p.store.ScanAll(cctx, coll)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", coll, err)
	}

	unsynced := make([]Document, 0, len(docs))
	for _, d := range docs {
		if synced, _ := d.Data[fieldSyncedToServer].(bool); !synced {
			unsynced = append(unsynced, d)
		}
	}
	p.log.Info("drained unsynced records",
		"collection", coll, "scanned", len(docs), "unsynced", len(unsynced))
	return unsynced, nil
}

// Acknowledge marks exactly the given records as durably ingested by setting
// syncedToServer = true. Safe with an empty list (no-op) and safe to retry
// with the same ids (idempotent flag update).
func (p *Puller) Acknowledge(ctx context.Context, entity EntityType, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	coll := entity.Collection()
	fields := map[string]interface{}{fieldSyncedToServer: true}

	for _, chunk := range chunkIDs(ids, p.cfg.MaxBatchSize) {
		cctx, cancel := context.WithTimeout(ctx, p.cfg.OpTimeout)
		err := p.store.BatchUpdate(cctx, coll, chunk, fields)
		cancel()
		if err != nil {
			return &AcknowledgeError{Entity: entity, IDs: chunk, Err: err}
		}
	}
	p.log.Info("acknowledged synced records", "collection", coll, "count", len(ids))
	return nil
}
