package firesync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RegistrationState is a pending registration's review state. PENDING moves
// exactly once to APPROVED or REJECTED and never reverts.
type RegistrationState string

const (
	RegistrationPending  RegistrationState = "PENDING"
	RegistrationApproved RegistrationState = "APPROVED"
	RegistrationRejected RegistrationState = "REJECTED"
)

const registrationCollection = "pending_registrations"

// Registrar reviews replica-only teacher registrations created by the
// mobile app. Approval is the one write path, besides the first-push
// default, that touches the replica-owned isApproved flag.
type Registrar struct {
	store DocumentStore
	cfg   Config
	log   *slog.Logger
}

// NewRegistrar creates a registration reviewer. If logger is nil the
// default slog logger is used.
func NewRegistrar(store DocumentStore, cfg Config, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{store: store, cfg: cfg.withDefaults(), log: logger}
}

// Pending lists registrations still awaiting review.
func (r *Registrar) Pending(ctx context.Context) ([]Document, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	docs, err := r.store.QueryEqual(cctx, registrationCollection, "status", string(RegistrationPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending registrations: %w", err)
	}
	return docs, nil
}

// Approve moves a PENDING registration to APPROVED and flips isApproved on
// the linked teacher document. Reviewing a registration twice returns
// ErrAlreadyReviewed.
func (r *Registrar) Approve(ctx context.Context, registrationID, reviewerID string) error {
	doc, err := r.review(ctx, registrationID, reviewerID, RegistrationApproved, "")
	if err != nil {
		return err
	}

	teacherID, _ := doc["teacherId"].(string)
	if teacherID == "" {
		r.log.Warn("approved registration has no teacher id", "registration", registrationID)
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()
	err = r.store.SetMerge(cctx, EntityTeachers.Collection(), teacherID, map[string]interface{}{
		fieldIsApproved: true,
	})
	if err != nil {
		return fmt.Errorf("registration %s approved but teacher %s not flagged: %w", registrationID, teacherID, err)
	}
	r.log.Info("registration approved",
		"registration", registrationID, "teacher", teacherID, "reviewer", reviewerID)
	return nil
}

// Reject moves a PENDING registration to REJECTED with an optional reason.
func (r *Registrar) Reject(ctx context.Context, registrationID, reviewerID, reason string) error {
	if _, err := r.review(ctx, registrationID, reviewerID, RegistrationRejected, reason); err != nil {
		return err
	}
	r.log.Info("registration rejected",
		"registration", registrationID, "reviewer", reviewerID)
	return nil
}

// review performs the one-shot state transition and returns the
// registration document as it was before the update.
func (r *Registrar) review(ctx context.Context, registrationID, reviewerID string, state RegistrationState, reason string) (map[string]interface{}, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	doc, err := r.store.Get(cctx, registrationCollection, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration %s: %w", registrationID, err)
	}
	if status, _ := doc["status"].(string); status != string(RegistrationPending) {
		return nil, fmt.Errorf("registration %s has status %s: %w", registrationID, status, ErrAlreadyReviewed)
	}

	fields := map[string]interface{}{
		"status":     string(state),
		"reviewedBy": reviewerID,
		"reviewedAt": time.Now(),
	}
	if reason != "" {
		fields["rejectionReason"] = reason
	}
	if err := r.store.Update(cctx, registrationCollection, registrationID, fields); err != nil {
		return nil, fmt.Errorf("failed to update registration %s: %w", registrationID, err)
	}
	return doc, nil
}
