package firesync

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by DocumentStore.Get for an absent document.
var ErrNotFound = errors.New("document not found")

// ErrLogFinalized is returned when Complete is called on a sync log that
// already reached a terminal status.
var ErrLogFinalized = errors.New("sync log already finalized")

// ErrAlreadyReviewed is returned when a pending registration is approved or
// rejected a second time.
var ErrAlreadyReviewed = errors.New("registration already reviewed")

// MappingError reports a single source record that could not be projected
// into its replica document. The record is skipped and counted as failed;
// the rest of the run continues.
type MappingError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map %s record %q: %s", e.Entity, e.ID, e.Reason)
}

// BatchError reports a batch commit rejected or timed out by the replica
// store. Every document in the batch counts as failed; the run continues
// with the next batch.
type BatchError struct {
	Entity EntityType
	Size   int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch of %d %s documents failed: %v", e.Size, e.Entity, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// AcknowledgeError reports a failed synced-flag update after records were
// already ingested. Retrying is safe: the update is idempotent, and until it
// lands the records simply remain eligible for re-drain.
type AcknowledgeError struct {
	Entity EntityType
	IDs    []string
	Err    error
}

func (e *AcknowledgeError) Error() string {
	return fmt.Sprintf("failed to mark %d %s records synced: %v", len(e.IDs), e.Entity, e.Err)
}

func (e *AcknowledgeError) Unwrap() error {
	return e.Err
}
