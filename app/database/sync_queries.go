package database

import (
	"database/sql"
	"time"

	"al-huda-school/app/firesync"
	"al-huda-school/app/models"
)

// GetTeachersForSync retrieves all active teachers with their assigned
// class sections and subjects denormalized, in the shape the push syncer
// projects into the replica
func GetTeachersForSync(db *sql.DB) ([]firesync.Entity, error) {
	query := `SELECT u.id, u.email, u.first_name, u.last_name,
			  COALESCE(u.phone, ''), COALESCE(u.employee_id, ''),
			  COALESCE(u.designation, ''), COALESCE(u.photo, ''),
			  CASE WHEN u.is_active THEN 'active' ELSE 'inactive' END
			  FROM users u
			  JOIN user_roles ur ON ur.user_id = u.id
			  JOIN roles r ON r.id = ur.role_id AND r.name = 'teacher'
			  WHERE u.deleted_at IS NULL
			  ORDER BY u.last_name, u.first_name`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []firesync.Teacher
	for rows.Next() {
		var t firesync.Teacher
		if err := rows.Scan(&t.ID, &t.Email, &t.FirstName, &t.LastName,
			&t.Phone, &t.EmployeeID, &t.Designation, &t.Photo, &t.Status); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range teachers {
		sections, err := getTeacherClassSections(db, teachers[i].ID)
		if err != nil {
			return nil, err
		}
		teachers[i].ClassSections = sections

		subjects, err := getTeacherSubjects(db, teachers[i].ID)
		if err != nil {
			return nil, err
		}
		teachers[i].Subjects = subjects
	}

	entities := make([]firesync.Entity, len(teachers))
	for i, t := range teachers {
		entities[i] = t
	}
	return entities, nil
}

func getTeacherClassSections(db *sql.DB, teacherID string) ([]firesync.RelationRef, error) {
	query := `SELECT s.id, s.name, c.id, c.name
			  FROM teacher_sections ts
			  JOIN sections s ON s.id = ts.section_id
			  JOIN classes c ON c.id = s.class_id
			  WHERE ts.teacher_id = $1
			  ORDER BY c.name, s.name`

	rows, err := db.Query(query, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []firesync.RelationRef
	for rows.Next() {
		var r firesync.RelationRef
		if err := rows.Scan(&r.ID, &r.Name, &r.ParentID, &r.ParentName); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func getTeacherSubjects(db *sql.DB, teacherID string) ([]firesync.RelationRef, error) {
	query := `SELECT s.id, s.name, c.id, c.name
			  FROM teacher_subjects ts
			  JOIN subjects s ON s.id = ts.subject_id
			  JOIN classes c ON c.id = s.class_id
			  WHERE ts.teacher_id = $1
			  ORDER BY c.name, s.name`

	rows, err := db.Query(query, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []firesync.RelationRef
	for rows.Next() {
		var r firesync.RelationRef
		if err := rows.Scan(&r.ID, &r.Name, &r.ParentID, &r.ParentName); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// GetStudentsForSync retrieves all active students with class and section
// names denormalized
func GetStudentsForSync(db *sql.DB) ([]firesync.Entity, error) {
	query := `SELECT st.id, COALESCE(st.registration_no, ''),
			  st.first_name, st.last_name,
			  COALESCE(st.class_id::text, ''), COALESCE(c.name, ''),
			  COALESCE(st.section_id::text, ''), COALESCE(sec.name, ''),
			  COALESCE(st.roll_no, ''), COALESCE(st.profile_image, ''),
			  CASE WHEN st.is_active THEN 'active' ELSE 'inactive' END
			  FROM students st
			  LEFT JOIN classes c ON c.id = st.class_id
			  LEFT JOIN sections sec ON sec.id = st.section_id
			  WHERE st.deleted_at IS NULL
			  ORDER BY st.last_name, st.first_name`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []firesync.Entity
	for rows.Next() {
		var s firesync.Student
		if err := rows.Scan(&s.ID, &s.RegistrationNo, &s.FirstName, &s.LastName,
			&s.ClassID, &s.ClassName, &s.SectionID, &s.SectionName,
			&s.RollNo, &s.ProfileImage, &s.Status); err != nil {
			return nil, err
		}
		entities = append(entities, s)
	}
	return entities, rows.Err()
}

// GetClassesForSync retrieves all active classes with their sections
func GetClassesForSync(db *sql.DB) ([]firesync.Entity, error) {
	query := `SELECT id, name FROM classes WHERE is_active = true ORDER BY name ASC`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []firesync.Class
	for rows.Next() {
		var c firesync.Class
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range classes {
		sections, err := getClassSections(db, classes[i].ID)
		if err != nil {
			return nil, err
		}
		classes[i].Sections = sections
	}

	entities := make([]firesync.Entity, len(classes))
	for i, c := range classes {
		entities[i] = c
	}
	return entities, nil
}

func getClassSections(db *sql.DB, classID string) ([]firesync.SectionRef, error) {
	query := `SELECT id, name FROM sections WHERE class_id = $1 ORDER BY name ASC`

	rows, err := db.Query(query, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []firesync.SectionRef
	for rows.Next() {
		var s firesync.SectionRef
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// GetSubjectsForSync retrieves all subjects with their class denormalized
func GetSubjectsForSync(db *sql.DB) ([]firesync.Entity, error) {
	query := `SELECT s.id, s.name, COALESCE(s.code, ''),
			  COALESCE(s.class_id::text, ''), COALESCE(c.name, '')
			  FROM subjects s
			  LEFT JOIN classes c ON c.id = s.class_id
			  ORDER BY s.name ASC`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []firesync.Entity
	for rows.Next() {
		var s firesync.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.ClassID, &s.ClassName); err != nil {
			return nil, err
		}
		entities = append(entities, s)
	}
	return entities, rows.Err()
}

// UpsertSyncedAttendance ingests one attendance record drained from the
// replica. The natural key (student_id, date) makes re-delivery of the same
// record a harmless update, so at-least-once pulls are safe
func UpsertSyncedAttendance(db *sql.DB, a *models.Attendance) error {
	query := `INSERT INTO attendance (student_id, class_id, date, status, marked_by, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW())
			  ON CONFLICT (student_id, date)
			  DO UPDATE SET status = EXCLUDED.status,
							marked_by = EXCLUDED.marked_by,
							updated_at = NOW()`

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.Exec(query, a.StudentID, a.ClassID, a.Date, a.Status, a.MarkedBy, createdAt)
	return err
}

// UpsertSyncedResult ingests one result record drained from the replica,
// keyed by (exam_id, student_id, subject_id)
func UpsertSyncedResult(db *sql.DB, r *models.Result) error {
	query := `INSERT INTO results (exam_id, student_id, subject_id, marks, remarks, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW())
			  ON CONFLICT (exam_id, student_id, subject_id)
			  DO UPDATE SET marks = EXCLUDED.marks,
							remarks = EXCLUDED.remarks,
							updated_at = NOW()`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.Exec(query, r.ExamID, r.StudentID, r.SubjectID, r.Marks, r.Remarks, createdAt)
	return err
}
