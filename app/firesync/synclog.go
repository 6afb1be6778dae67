package firesync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// SyncType labels what a sync run covered.
type SyncType string

const (
	SyncFull       SyncType = "FULL"
	SyncPartial    SyncType = "PARTIAL"
	SyncTeachers   SyncType = "TEACHERS"
	SyncStudents   SyncType = "STUDENTS"
	SyncClasses    SyncType = "CLASSES"
	SyncAttendance SyncType = "ATTENDANCE"
	SyncResults    SyncType = "RESULTS"
)

// Direction labels which way a sync run moved data.
type Direction string

const (
	DirectionToReplica   Direction = "TO_REPLICA"
	DirectionFromReplica Direction = "FROM_REPLICA"
)

// Status is a sync log lifecycle state. IN_PROGRESS transitions exactly once
// to SUCCESS or FAILED; both are terminal.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

const logCollection = "sync_logs"

// SyncLog is one append-only audit record describing a sync run.
type SyncLog struct {
	ID               string     `json:"id"`
	SyncType         SyncType   `json:"sync_type"`
	Direction        Direction  `json:"direction"`
	Status           Status     `json:"status"`
	RecordsProcessed int        `json:"records_processed"`
	RecordsFailed    int        `json:"records_failed"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Error            string     `json:"error,omitempty"`
	InitiatedBy      string     `json:"initiated_by"`
}

// Recorder owns the sync_logs collection. Logs are created IN_PROGRESS
// before a run does any work, finalized exactly once, and never deleted by
// the engine, so a crash mid-run leaves a discoverable IN_PROGRESS entry.
type Recorder struct {
	store DocumentStore
	cfg   Config
	log   *slog.Logger
}

// NewRecorder creates a sync log recorder. If logger is nil the default
// slog logger is used.
func NewRecorder(store DocumentStore, cfg Config, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, cfg: cfg.withDefaults(), log: logger}
}

// Begin writes an IN_PROGRESS log and returns its id.
func (r *Recorder) Begin(ctx context.Context, syncType SyncType, direction Direction, initiatedBy string) (string, error) {
	id := r.store.NewDocID(logCollection)
	doc := map[string]interface{}{
		"syncType":         string(syncType),
		"direction":        string(direction),
		"status":           string(StatusInProgress),
		"recordsProcessed": 0,
		"recordsFailed":    0,
		"startedAt":        time.Now(),
		"initiatedBy":      initiatedBy,
	}

	cctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()
	if err := r.store.SetMerge(cctx, logCollection, id, doc); err != nil {
		return "", fmt.Errorf("failed to create sync log: %w", err)
	}
	return id, nil
}

// Complete finalizes the log: SUCCESS when runErr is nil, FAILED otherwise,
// with the run's counts and completion time. Only an IN_PROGRESS log can be
// completed; a second call returns ErrLogFinalized.
func (r *Recorder) Complete(ctx context.Context, logID string, res Result, runErr error) error {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	current, err := r.store.Get(cctx, logCollection, logID)
	if err != nil {
		return fmt.Errorf("failed to load sync log %s: %w", logID, err)
	}
	if status, _ := current["status"].(string); status != string(StatusInProgress) {
		return fmt.Errorf("sync log %s has status %s: %w", logID, status, ErrLogFinalized)
	}

	fields := map[string]interface{}{
		"status":           string(StatusSuccess),
		"recordsProcessed": res.Success,
		"recordsFailed":    res.Failed,
		"completedAt":      time.Now(),
	}
	if runErr != nil {
		fields["status"] = string(StatusFailed)
		fields["error"] = runErr.Error()
	}
	if err := r.store.Update(cctx, logCollection, logID, fields); err != nil {
		return fmt.Errorf("failed to finalize sync log %s: %w", logID, err)
	}
	return nil
}

// Recent returns the limit most-recently-started logs, newest first. It has
// no side effects on the log collection.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		return nil, nil
	}
	cctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	docs, err := r.store.ScanAll(cctx, logCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync logs: %w", err)
	}

	logs := make([]SyncLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, decodeSyncLog(d))
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt.After(logs[j].StartedAt)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func decodeSyncLog(d Document) SyncLog {
	entry := SyncLog{ID: d.ID}
	if v, ok := d.Data["syncType"].(string); ok {
		entry.SyncType = SyncType(v)
	}
	if v, ok := d.Data["direction"].(string); ok {
		entry.Direction = Direction(v)
	}
	if v, ok := d.Data["status"].(string); ok {
		entry.Status = Status(v)
	}
	entry.RecordsProcessed = asInt(d.Data["recordsProcessed"])
	entry.RecordsFailed = asInt(d.Data["recordsFailed"])
	if v, ok := d.Data["startedAt"].(time.Time); ok {
		entry.StartedAt = v
	}
	if v, ok := d.Data["completedAt"].(time.Time); ok {
		entry.CompletedAt = &v
	}
	if v, ok := d.Data["error"].(string); ok {
		entry.Error = v
	}
	if v, ok := d.Data["initiatedBy"].(string); ok {
		entry.InitiatedBy = v
	}
	return entry
}

// asInt tolerates the numeric types Firestore hands back for ints.
func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
