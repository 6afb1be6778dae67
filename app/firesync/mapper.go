package firesync

import (
	"time"
)

// Replica document field names shared across collections.
const (
	fieldSyncedToServer = "syncedToServer"
	fieldCreatedAt      = "createdAt"
	fieldUpdatedAt      = "updatedAt"
	fieldLastSyncedAt   = "lastSyncedAt"
	fieldIsApproved     = "isApproved"
)

// Entity is one authoritative record handed to the push syncer. ReplicaDoc
// builds the full replica projection; existing is the current replica
// document (nil on first write) so replica-owned fields can be carried over.
// Implementations must be pure: no I/O, deterministic for a given existing
// snapshot and now.
type Entity interface {
	EntityID() string
	ReplicaDoc(existing map[string]interface{}, now time.Time) (map[string]interface{}, error)
}

// RelationRef is a denormalized child/parent pair flattened out of a
// relation list, e.g. a teacher's assigned section within a class.
type RelationRef struct {
	ID         string
	Name       string
	ParentID   string
	ParentName string
}

// Teacher is the authoritative teacher row in the shape the sync engine
// expects from app/database.
type Teacher struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	EmployeeID    string
	Designation   string
	Photo         string
	Status        string
	ClassSections []RelationRef
	Subjects      []RelationRef
}

func (t Teacher) EntityID() string { return t.ID }

// ReplicaDoc projects the teacher into its replica document. isApproved and
// createdAt are replica-owned: once present on the existing document they
// are carried over verbatim, and the mobile app's approval of a teacher is
// never undone by a later push.
func (t Teacher) ReplicaDoc(existing map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	if t.ID == "" {
		return nil, &MappingError{Entity: EntityTeachers, Reason: "missing id"}
	}
	if t.Email == "" && t.FirstName == "" && t.LastName == "" {
		return nil, &MappingError{Entity: EntityTeachers, ID: t.ID, Reason: "no identifying fields"}
	}

	doc := map[string]interface{}{
		"email":         t.Email,
		"firstName":     t.FirstName,
		"lastName":      t.LastName,
		"phone":         t.Phone,
		"employeeId":    t.EmployeeID,
		"designation":   t.Designation,
		"photo":         t.Photo,
		"status":        t.Status,
		"classSections": relationList(t.ClassSections),
		"subjects":      relationList(t.Subjects),
	}
	stampPush(doc, now)

	doc[fieldIsApproved] = false
	doc[fieldCreatedAt] = now
	if existing != nil {
		if v, ok := existing[fieldIsApproved]; ok {
			doc[fieldIsApproved] = v
		}
		if v, ok := existing[fieldCreatedAt]; ok {
			doc[fieldCreatedAt] = v
		}
	}
	return doc, nil
}

// Student is the authoritative student row in the shape the sync engine
// expects from app/database.
type Student struct {
	ID             string
	RegistrationNo string
	FirstName      string
	LastName       string
	ClassID        string
	ClassName      string
	SectionID      string
	SectionName    string
	RollNo         string
	ProfileImage   string
	Status         string
}

func (s Student) EntityID() string { return s.ID }

func (s Student) ReplicaDoc(existing map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	if s.ID == "" {
		return nil, &MappingError{Entity: EntityStudents, Reason: "missing id"}
	}
	doc := map[string]interface{}{
		"registrationNo": s.RegistrationNo,
		"firstName":      s.FirstName,
		"lastName":       s.LastName,
		"classId":        s.ClassID,
		"className":      s.ClassName,
		"sectionId":      s.SectionID,
		"sectionName":    s.SectionName,
		"rollNo":         s.RollNo,
		"profileImage":   s.ProfileImage,
		"status":         s.Status,
	}
	stampPush(doc, now)
	return doc, nil
}

// Class is the authoritative class row with its sections.
type Class struct {
	ID       string
	Name     string
	Sections []SectionRef
}

// SectionRef is a section belonging to a class.
type SectionRef struct {
	ID   string
	Name string
}

func (c Class) EntityID() string { return c.ID }

func (c Class) ReplicaDoc(existing map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	if c.ID == "" {
		return nil, &MappingError{Entity: EntityClasses, Reason: "missing id"}
	}
	if c.Name == "" {
		return nil, &MappingError{Entity: EntityClasses, ID: c.ID, Reason: "missing name"}
	}
	sections := make([]interface{}, 0, len(c.Sections))
	for _, s := range c.Sections {
		sections = append(sections, map[string]interface{}{
			"id":   s.ID,
			"name": s.Name,
		})
	}
	doc := map[string]interface{}{
		"name":     c.Name,
		"sections": sections,
	}
	stampPush(doc, now)
	return doc, nil
}

// Subject is the authoritative subject row with its class denormalized.
type Subject struct {
	ID        string
	Name      string
	Code      string
	ClassID   string
	ClassName string
}

func (s Subject) EntityID() string { return s.ID }

func (s Subject) ReplicaDoc(existing map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	if s.ID == "" {
		return nil, &MappingError{Entity: EntitySubjects, Reason: "missing id"}
	}
	if s.Name == "" {
		return nil, &MappingError{Entity: EntitySubjects, ID: s.ID, Reason: "missing name"}
	}
	doc := map[string]interface{}{
		"name":      s.Name,
		"code":      s.Code,
		"classId":   s.ClassID,
		"className": s.ClassName,
	}
	stampPush(doc, now)
	return doc, nil
}

// relationList flattens refs into homogeneous documents. Always returns a
// non-nil slice so the replica field is an empty array, never null.
func relationList(refs []RelationRef) []interface{} {
	out := make([]interface{}, 0, len(refs))
	for _, r := range refs {
		out = append(out, map[string]interface{}{
			"id":         r.ID,
			"name":       r.Name,
			"parentId":   r.ParentID,
			"parentName": r.ParentName,
		})
	}
	return out
}

// stampPush sets the business-mutation and this-push timestamps.
func stampPush(doc map[string]interface{}, now time.Time) {
	doc[fieldUpdatedAt] = now
	doc[fieldLastSyncedAt] = now
}
