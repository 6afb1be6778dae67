package models

import "time"

// Result stores a student's marks for a subject in an exam, as entered
// offline by the teacher app and pulled back into PostgreSQL
type Result struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()" validate:"required,uuid"`
	ExamID    string    `json:"exam_id" gorm:"not null;index;type:uuid" validate:"required,uuid"`
	StudentID string    `json:"student_id" gorm:"not null;index;type:uuid" validate:"required,uuid"`
	SubjectID string    `json:"subject_id" gorm:"not null;index;type:uuid" validate:"required,uuid"`
	Marks     float64   `json:"marks" gorm:"not null;type:decimal(5,2)" validate:"gte=0"`
	Remarks   string    `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
