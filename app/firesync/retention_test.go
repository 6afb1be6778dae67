package firesync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPruneSynced(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	days := 30

	seedAttendance(store, "old-synced", true, now.AddDate(0, 0, -(days+1)))
	seedAttendance(store, "recent-synced", true, now.AddDate(0, 0, -(days-1)))
	seedAttendance(store, "old-unsynced", false, now.AddDate(0, 0, -365))
	store.seed(EntityAttendance.Collection(), "no-created-at", map[string]interface{}{
		"studentId":      "s1",
		"syncedToServer": true,
	})

	sweeper := NewSweeper(store, Config{}, testLogger())
	deleted, err := sweeper.PruneSynced(context.Background(), EntityAttendance, days)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected exactly 1 deletion, got %d", deleted)
	}

	coll := EntityAttendance.Collection()
	if store.doc(coll, "old-synced") != nil {
		t.Error("synced record older than the window must be deleted")
	}
	if store.doc(coll, "recent-synced") == nil {
		t.Error("synced record inside the window must be retained")
	}
	if store.doc(coll, "old-unsynced") == nil {
		t.Error("unsynced records must never be pruned, regardless of age")
	}
	if store.doc(coll, "no-created-at") == nil {
		t.Error("records without createdAt must be retained")
	}
}

func TestPruneSyncedRejectsNegativeWindow(t *testing.T) {
	sweeper := NewSweeper(newMemStore(), Config{}, testLogger())
	if _, err := sweeper.PruneSynced(context.Background(), EntityAttendance, -1); err == nil {
		t.Fatal("negative retention window must be rejected")
	}
}

func TestPruneSyncedChunksDeletes(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	for i := 0; i < 12; i++ {
		seedAttendance(store, string(rune('a'+i)), true, now.AddDate(0, 0, -100))
	}

	sweeper := NewSweeper(store, Config{MaxBatchSize: 5}, testLogger())
	deleted, err := sweeper.PruneSynced(context.Background(), EntityAttendance, 30)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 12 {
		t.Errorf("expected 12 deletions, got %d", deleted)
	}
	if store.batchCommits != 3 {
		t.Errorf("expected 3 chunked delete commits, got %d", store.batchCommits)
	}
}

func TestPruneSyncedChunkFailure(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	for i := 0; i < 10; i++ {
		seedAttendance(store, string(rune('a'+i)), true, now.AddDate(0, 0, -100))
	}
	store.batchErr = func(commit int) error {
		if commit == 1 {
			return errors.New("transport outage")
		}
		return nil
	}

	sweeper := NewSweeper(store, Config{MaxBatchSize: 5}, testLogger())
	deleted, err := sweeper.PruneSynced(context.Background(), EntityAttendance, 30)
	if err == nil {
		t.Fatal("chunk failure must surface an error")
	}
	if deleted != 5 {
		t.Errorf("count must reflect actual deletions, got %d", deleted)
	}
}

func TestPurgeAll(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	seedAttendance(store, "a1", true, now)
	seedAttendance(store, "a2", false, now)
	seedAttendance(store, "a3", true, now.AddDate(0, 0, -400))

	sweeper := NewSweeper(store, Config{}, testLogger())
	deleted, err := sweeper.PurgeAll(context.Background(), EntityAttendance)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("purge must delete everything regardless of state, got %d", deleted)
	}
	if store.docCount(EntityAttendance.Collection()) != 0 {
		t.Errorf("collection not empty after purge")
	}
}

func TestPurgeAllPartialFailure(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	for i := 0; i < 5; i++ {
		seedAttendance(store, string(rune('a'+i)), true, now)
	}
	store.deleteErr = func(call int) error {
		if call == 3 {
			return errors.New("transport outage")
		}
		return nil
	}

	sweeper := NewSweeper(store, Config{}, testLogger())
	deleted, err := sweeper.PurgeAll(context.Background(), EntityAttendance)
	if err == nil {
		t.Fatal("mid-run failure must surface an error")
	}
	if deleted != 2 {
		t.Errorf("count must be actual deletions before the failure, got %d", deleted)
	}
	if store.docCount(EntityAttendance.Collection()) != 3 {
		t.Errorf("expected a partial, auditable result with 3 documents left, got %d",
			store.docCount(EntityAttendance.Collection()))
	}
}
