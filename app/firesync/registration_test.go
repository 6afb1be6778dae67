package firesync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedRegistration(store *memStore, id, teacherID string, state RegistrationState) {
	store.seed(registrationCollection, id, map[string]interface{}{
		"teacherId": teacherID,
		"email":     "new.teacher@school.edu.pk",
		"status":    string(state),
		"createdAt": time.Now(),
	})
}

func TestRegistrarApprove(t *testing.T) {
	store := newMemStore()
	seedRegistration(store, "reg1", "t1", RegistrationPending)
	store.seed(EntityTeachers.Collection(), "t1", map[string]interface{}{
		"firstName":  "Sana",
		"isApproved": false,
	})

	registrar := NewRegistrar(store, Config{}, testLogger())
	ctx := context.Background()

	if err := registrar.Approve(ctx, "reg1", "admin1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	reg := store.doc(registrationCollection, "reg1")
	if reg["status"] != string(RegistrationApproved) {
		t.Errorf("expected APPROVED, got %v", reg["status"])
	}
	if reg["reviewedBy"] != "admin1" {
		t.Errorf("reviewer not recorded: %v", reg["reviewedBy"])
	}
	if _, ok := reg["reviewedAt"].(time.Time); !ok {
		t.Error("review timestamp not recorded")
	}

	teacher := store.doc(EntityTeachers.Collection(), "t1")
	if teacher["isApproved"] != true {
		t.Error("approval must flip isApproved on the teacher document")
	}

	// Transitions are one-shot.
	err := registrar.Approve(ctx, "reg1", "admin2")
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Errorf("re-approval must return ErrAlreadyReviewed, got %v", err)
	}
}

func TestRegistrarReject(t *testing.T) {
	store := newMemStore()
	seedRegistration(store, "reg1", "t1", RegistrationPending)

	registrar := NewRegistrar(store, Config{}, testLogger())
	ctx := context.Background()

	if err := registrar.Reject(ctx, "reg1", "admin1", "duplicate account"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	reg := store.doc(registrationCollection, "reg1")
	if reg["status"] != string(RegistrationRejected) {
		t.Errorf("expected REJECTED, got %v", reg["status"])
	}
	if reg["rejectionReason"] != "duplicate account" {
		t.Errorf("reason not recorded: %v", reg["rejectionReason"])
	}

	// A rejected registration never reverts.
	err := registrar.Approve(ctx, "reg1", "admin1")
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Errorf("approval after rejection must fail, got %v", err)
	}
}

func TestRegistrarPending(t *testing.T) {
	store := newMemStore()
	seedRegistration(store, "reg1", "t1", RegistrationPending)
	seedRegistration(store, "reg2", "t2", RegistrationApproved)
	seedRegistration(store, "reg3", "t3", RegistrationRejected)

	registrar := NewRegistrar(store, Config{}, testLogger())
	docs, err := registrar.Pending(context.Background())
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "reg1" {
		t.Errorf("expected only reg1 pending, got %v", docs)
	}
}

func TestRegistrarMissingRegistration(t *testing.T) {
	registrar := NewRegistrar(newMemStore(), Config{}, testLogger())
	err := registrar.Approve(context.Background(), "missing", "admin1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
