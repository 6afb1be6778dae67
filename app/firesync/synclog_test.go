package firesync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSyncLogLifecycle(t *testing.T) {
	store := newMemStore()
	recorder := NewRecorder(store, Config{}, testLogger())
	ctx := context.Background()

	logID, err := recorder.Begin(ctx, SyncTeachers, DirectionToReplica, "operator")
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	// The log is discoverable as IN_PROGRESS before the run completes.
	doc := store.doc(logCollection, logID)
	if doc == nil {
		t.Fatal("begin must write the log immediately")
	}
	if doc["status"] != string(StatusInProgress) {
		t.Errorf("expected IN_PROGRESS, got %v", doc["status"])
	}
	if _, ok := doc["startedAt"].(time.Time); !ok {
		t.Error("startedAt not set")
	}

	if err := recorder.Complete(ctx, logID, Result{Success: 10, Failed: 2}, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	doc = store.doc(logCollection, logID)
	if doc["status"] != string(StatusSuccess) {
		t.Errorf("expected SUCCESS, got %v", doc["status"])
	}
	if doc["recordsProcessed"] != 10 || doc["recordsFailed"] != 2 {
		t.Errorf("counts not recorded: %v / %v", doc["recordsProcessed"], doc["recordsFailed"])
	}
	if _, ok := doc["completedAt"].(time.Time); !ok {
		t.Error("completedAt not set")
	}

	// Terminal states are final.
	err = recorder.Complete(ctx, logID, Result{}, nil)
	if !errors.Is(err, ErrLogFinalized) {
		t.Errorf("second complete must return ErrLogFinalized, got %v", err)
	}
}

func TestSyncLogFailure(t *testing.T) {
	store := newMemStore()
	recorder := NewRecorder(store, Config{}, testLogger())
	ctx := context.Background()

	logID, err := recorder.Begin(ctx, SyncAttendance, DirectionFromReplica, "scheduler")
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := recorder.Complete(ctx, logID, Result{Success: 3, Failed: 7}, errors.New("firestore unavailable")); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	doc := store.doc(logCollection, logID)
	if doc["status"] != string(StatusFailed) {
		t.Errorf("expected FAILED, got %v", doc["status"])
	}
	if doc["error"] != "firestore unavailable" {
		t.Errorf("error text not recorded: %v", doc["error"])
	}
}

func TestSyncLogRecent(t *testing.T) {
	store := newMemStore()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.seed(logCollection, string(rune('a'+i)), map[string]interface{}{
			"syncType":         string(SyncFull),
			"direction":        string(DirectionToReplica),
			"status":           string(StatusSuccess),
			"recordsProcessed": int64(i),
			"startedAt":        base.Add(time.Duration(i) * time.Hour),
			"initiatedBy":      "scheduler",
		})
	}

	recorder := NewRecorder(store, Config{}, testLogger())
	logs, err := recorder.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].StartedAt.After(logs[i-1].StartedAt) {
			t.Error("logs not sorted by startedAt descending")
		}
	}
	if logs[0].ID != "e" {
		t.Errorf("most recent log should come first, got %s", logs[0].ID)
	}
	if logs[0].RecordsProcessed != 4 {
		t.Errorf("int64 counts must decode, got %d", logs[0].RecordsProcessed)
	}

	if logs, err := recorder.Recent(context.Background(), 0); err != nil || logs != nil {
		t.Errorf("non-positive limit must return nothing, got %v, %v", logs, err)
	}
}
