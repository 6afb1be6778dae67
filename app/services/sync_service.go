package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"al-huda-school/app/database"
	"al-huda-school/app/firesync"
	"al-huda-school/app/models"
)

// SyncService orchestrates sync runs: every push, pull, prune and purge is
// wrapped in a sync log entry, and pull runs ingest the drained records into
// PostgreSQL before acknowledging them.
type SyncService struct {
	db        *sql.DB
	pusher    *firesync.Pusher
	puller    *firesync.Puller
	sweeper   *firesync.Sweeper
	recorder  *firesync.Recorder
	registrar *firesync.Registrar
	log       *slog.Logger
}

// NewSyncService wires the sync engine components around one replica store.
func NewSyncService(db *sql.DB, store firesync.DocumentStore, cfg firesync.Config, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		db:        db,
		pusher:    firesync.NewPusher(store, cfg, logger),
		puller:    firesync.NewPuller(store, cfg, logger),
		sweeper:   firesync.NewSweeper(store, cfg, logger),
		recorder:  firesync.NewRecorder(store, cfg, logger),
		registrar: firesync.NewRegistrar(store, cfg, logger),
		log:       logger,
	}
}

// Registrar exposes the pending-registration review operations.
func (s *SyncService) Registrar() *firesync.Registrar {
	return s.registrar
}

// PushEntity mirrors one authoritative collection into the replica.
func (s *SyncService) PushEntity(ctx context.Context, entity firesync.EntityType, initiatedBy string) (firesync.Result, error) {
	logID, err := s.recorder.Begin(ctx, syncTypeFor(entity), firesync.DirectionToReplica, initiatedBy)
	if err != nil {
		return firesync.Result{}, err
	}

	res, runErr := s.pushOnce(ctx, entity)
	s.completeLog(logID, res, runErr)
	return res, runErr
}

// PushAll mirrors teachers, students, classes and subjects under a single
// FULL sync log. A failure in one collection does not stop the others; the
// log carries the first error.
func (s *SyncService) PushAll(ctx context.Context, initiatedBy string) (firesync.Result, error) {
	logID, err := s.recorder.Begin(ctx, firesync.SyncFull, firesync.DirectionToReplica, initiatedBy)
	if err != nil {
		return firesync.Result{}, err
	}

	var total firesync.Result
	var firstErr error
	for _, entity := range []firesync.EntityType{
		firesync.EntityTeachers,
		firesync.EntityStudents,
		firesync.EntityClasses,
		firesync.EntitySubjects,
	} {
		res, runErr := s.pushOnce(ctx, entity)
		total.Success += res.Success
		total.Failed += res.Failed
		if runErr != nil && firstErr == nil {
			firstErr = runErr
		}
		if ctx.Err() != nil {
			break
		}
	}
	s.completeLog(logID, total, firstErr)
	return total, firstErr
}

func (s *SyncService) pushOnce(ctx context.Context, entity firesync.EntityType) (firesync.Result, error) {
	items, err := s.loadEntities(entity)
	if err != nil {
		return firesync.Result{}, fmt.Errorf("failed to load %s from database: %w", entity, err)
	}
	return s.pusher.PushCollection(ctx, entity, items)
}

func (s *SyncService) loadEntities(entity firesync.EntityType) ([]firesync.Entity, error) {
	switch entity {
	case firesync.EntityTeachers:
		return database.GetTeachersForSync(s.db)
	case firesync.EntityStudents:
		return database.GetStudentsForSync(s.db)
	case firesync.EntityClasses:
		return database.GetClassesForSync(s.db)
	case firesync.EntitySubjects:
		return database.GetSubjectsForSync(s.db)
	}
	return nil, fmt.Errorf("entity type %q cannot be pushed", entity)
}

// PullEntity drains unsynced attendance or results from the replica,
// ingests them into PostgreSQL and acknowledges exactly the records that
// ingested. Records that fail to decode or upsert are left unacknowledged
// and will be re-drained on the next run.
func (s *SyncService) PullEntity(ctx context.Context, entity firesync.EntityType, initiatedBy string) (firesync.Result, error) {
	if entity != firesync.EntityAttendance && entity != firesync.EntityResults {
		return firesync.Result{}, fmt.Errorf("entity type %q cannot be pulled", entity)
	}

	logID, err := s.recorder.Begin(ctx, syncTypeFor(entity), firesync.DirectionFromReplica, initiatedBy)
	if err != nil {
		return firesync.Result{}, err
	}

	res, runErr := s.pullOnce(ctx, entity)
	s.completeLog(logID, res, runErr)
	return res, runErr
}

func (s *SyncService) pullOnce(ctx context.Context, entity firesync.EntityType) (firesync.Result, error) {
	docs, err := s.puller.DrainUnsynced(ctx, entity)
	if err != nil {
		return firesync.Result{}, err
	}

	var res firesync.Result
	ingested := make([]string, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			res.Failed += len(docs) - res.Success - res.Failed
			break
		}
		if err := s.ingest(entity, d); err != nil {
			res.Failed++
			s.log.Warn("failed to ingest record",
				"collection", entity.Collection(), "id", d.ID, "error", err)
			continue
		}
		ingested = append(ingested, d.ID)
		res.Success++
	}

	if err := s.puller.Acknowledge(ctx, entity, ingested); err != nil {
		// Already ingested; records stay eligible for re-drain and the
		// database upserts tolerate the duplicates.
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("pull of %s cancelled: %w", entity.Collection(), err)
	}
	return res, nil
}

func (s *SyncService) ingest(entity firesync.EntityType, d firesync.Document) error {
	switch entity {
	case firesync.EntityAttendance:
		rec, err := decodeAttendance(d)
		if err != nil {
			return err
		}
		return database.UpsertSyncedAttendance(s.db, rec)
	case firesync.EntityResults:
		rec, err := decodeResult(d)
		if err != nil {
			return err
		}
		return database.UpsertSyncedResult(s.db, rec)
	}
	return fmt.Errorf("entity type %q cannot be ingested", entity)
}

// Prune deletes synced replica records older than olderThanDays.
func (s *SyncService) Prune(ctx context.Context, entity firesync.EntityType, olderThanDays int, initiatedBy string) (int, error) {
	logID, err := s.recorder.Begin(ctx, syncTypeFor(entity), firesync.DirectionFromReplica, initiatedBy)
	if err != nil {
		return 0, err
	}
	deleted, runErr := s.sweeper.PruneSynced(ctx, entity, olderThanDays)
	s.completeLog(logID, firesync.Result{Success: deleted}, runErr)
	return deleted, runErr
}

// Purge unconditionally empties a replica collection.
func (s *SyncService) Purge(ctx context.Context, entity firesync.EntityType, initiatedBy string) (int, error) {
	logID, err := s.recorder.Begin(ctx, syncTypeFor(entity), firesync.DirectionFromReplica, initiatedBy)
	if err != nil {
		return 0, err
	}
	deleted, runErr := s.sweeper.PurgeAll(ctx, entity)
	s.completeLog(logID, firesync.Result{Success: deleted}, runErr)
	return deleted, runErr
}

// RecentLogs returns the most recent sync runs, newest first.
func (s *SyncService) RecentLogs(ctx context.Context, limit int) ([]firesync.SyncLog, error) {
	return s.recorder.Recent(ctx, limit)
}

// completeLog finalizes a sync log on a fresh context so a cancelled run
// never leaves an IN_PROGRESS entry behind.
func (s *SyncService) completeLog(logID string, res firesync.Result, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.recorder.Complete(ctx, logID, res, runErr); err != nil {
		s.log.Error("failed to finalize sync log", "log_id", logID, "error", err)
	}
}

func syncTypeFor(entity firesync.EntityType) firesync.SyncType {
	switch entity {
	case firesync.EntityTeachers:
		return firesync.SyncTeachers
	case firesync.EntityStudents:
		return firesync.SyncStudents
	case firesync.EntityClasses:
		return firesync.SyncClasses
	case firesync.EntityAttendance:
		return firesync.SyncAttendance
	case firesync.EntityResults:
		return firesync.SyncResults
	}
	return firesync.SyncPartial
}

func decodeAttendance(d firesync.Document) (*models.Attendance, error) {
	studentID, _ := d.Data["studentId"].(string)
	if studentID == "" {
		return nil, fmt.Errorf("attendance %s: missing studentId", d.ID)
	}
	date, err := decodeDate(d.Data["date"])
	if err != nil {
		return nil, fmt.Errorf("attendance %s: %w", d.ID, err)
	}
	status, _ := d.Data["status"].(string)
	if !models.ValidAttendanceStatus(status) {
		return nil, fmt.Errorf("attendance %s: invalid status %q", d.ID, status)
	}

	rec := &models.Attendance{
		ID:        d.ID,
		StudentID: studentID,
		Date:      date,
		Status:    models.AttendanceStatus(status),
	}
	if v, ok := d.Data["classId"].(string); ok && v != "" {
		rec.ClassID = &v
	}
	if v, ok := d.Data["markedBy"].(string); ok && v != "" {
		rec.MarkedBy = &v
	}
	if v, ok := d.Data["createdAt"].(time.Time); ok {
		rec.CreatedAt = v
	}
	return rec, nil
}

func decodeResult(d firesync.Document) (*models.Result, error) {
	examID, _ := d.Data["examId"].(string)
	studentID, _ := d.Data["studentId"].(string)
	subjectID, _ := d.Data["subjectId"].(string)
	if examID == "" || studentID == "" || subjectID == "" {
		return nil, fmt.Errorf("result %s: missing examId, studentId or subjectId", d.ID)
	}
	marks, ok := decodeFloat(d.Data["marks"])
	if !ok || marks < 0 {
		return nil, fmt.Errorf("result %s: invalid marks", d.ID)
	}

	rec := &models.Result{
		ID:        d.ID,
		ExamID:    examID,
		StudentID: studentID,
		SubjectID: subjectID,
		Marks:     marks,
	}
	if v, ok := d.Data["remarks"].(string); ok {
		rec.Remarks = v
	}
	if v, ok := d.Data["createdAt"].(time.Time); ok {
		rec.CreatedAt = v
	}
	return rec, nil
}

func decodeDate(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", t)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("missing date")
}

func decodeFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
