package firesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper prunes replica history that has already been ingested, and can
// purge a whole collection on operator demand.
type Sweeper struct {
	store DocumentStore
	cfg   Config
	log   *slog.Logger
}

// NewSweeper creates a retention sweeper. If logger is nil the default slog
// logger is used.
func NewSweeper(store DocumentStore, cfg Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, cfg: cfg.withDefaults(), log: logger}
}

// PruneSynced deletes records that are both marked syncedToServer and were
// created before now - olderThanDays. Everything else is retained: unsynced
// records regardless of age, and records whose createdAt is missing or not
// a timestamp. Deletes are chunked to the configured batch limit.
//
// Returns the number of records actually deleted. Chunk failures are
// accumulated; already-deleted chunks stay deleted.
func (s *Sweeper) PruneSynced(ctx context.Context, entity EntityType, olderThanDays int) (int, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("olderThanDays must not be negative, got %d", olderThanDays)
	}
	coll := entity.Collection()
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	docs, err := s.store.ScanAll(cctx, coll)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", coll, err)
	}

	var candidates []string
	for _, d := range docs {
		synced, _ := d.Data[fieldSyncedToServer].(bool)
		if !synced {
			continue
		}
		createdAt, ok := d.Data[fieldCreatedAt].(time.Time)
		if !ok {
			// No trustworthy age; fail safe toward retaining.
			continue
		}
		if createdAt.Before(cutoff) {
			candidates = append(candidates, d.ID)
		}
	}

	deleted := 0
	var errs []error
	for _, chunk := range chunkIDs(candidates, s.cfg.MaxBatchSize) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		cctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		err := s.store.BatchDelete(cctx, coll, chunk)
		cancel()
		if err != nil {
			errs = append(errs, &BatchError{Entity: entity, Size: len(chunk), Err: err})
			continue
		}
		deleted += len(chunk)
	}

	s.log.Info("retention sweep complete",
		"collection", coll,
		"older_than_days", olderThanDays,
		"candidates", len(candidates),
		"deleted", deleted)
	return deleted, errors.Join(errs...)
}

// PurgeAll unconditionally deletes every document in the collection,
// regardless of sync state or age. Deletions run one document at a time so
// a mid-run failure leaves a partial, auditable result; the returned count
// is the number actually deleted, not requested.
func (s *Sweeper) PurgeAll(ctx context.Context, entity EntityType) (int, error) {
	coll := entity.Collection()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	docs, err := s.store.ScanAll(cctx, coll)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", coll, err)
	}

	deleted := 0
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return deleted, fmt.Errorf("purge of %s cancelled after %d deletes: %w", coll, deleted, err)
		}
		cctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		err := s.store.Delete(cctx, coll, d.ID)
		cancel()
		if err != nil {
			return deleted, fmt.Errorf("purge of %s stopped at %d of %d: %w", coll, deleted, len(docs), err)
		}
		deleted++
	}

	s.log.Warn("collection purged", "collection", coll, "deleted", deleted)
	return deleted, nil
}
