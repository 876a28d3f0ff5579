package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Exam struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	GroupID   string    `json:"group_id"`
	LessonID  string    `json:"lesson_id"`
	TeacherID string    `json:"teacher_id,omitempty"`
	Title     string    `json:"title"`
	Date      string    `json:"date"` // YYYY-MM-DD
	MaxScore  float64   `json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
}

type Score struct {
	ID        string    `json:"id"`
	ExamID    string    `json:"exam_id"`
	StudentID string    `json:"student_id"`
	Value     float64   `json:"value"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Percentage returns the score relative to the exam's max score.
func (s Score) Percentage(ex Exam) float64 {
	if ex.MaxScore <= 0 {
		return 0
	}
	return s.Value * 100 / ex.MaxScore
}

type NewExam struct {
	SchoolID  string  `json:"school_id" validate:"required,uuid"`
	GroupID   string  `json:"group_id" validate:"required,uuid"`
	LessonID  string  `json:"lesson_id" validate:"required,uuid"`
	TeacherID string  `json:"teacher_id" validate:"omitempty,uuid"`
	Title     string  `json:"title" validate:"required"`
	Date      string  `json:"date" validate:"required,date"`
	MaxScore  float64 `json:"max_score" validate:"gt=0"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.SchoolID = core.CleanString(ne.SchoolID)
	ne.Title = core.CleanString(ne.Title)
	ne.Date = core.CleanString(ne.Date)
	return validate.Struct(ne)
}

type NewScore struct {
	StudentID string  `json:"student_id" validate:"required,uuid"`
	Value     float64 `json:"value" validate:"min=0"`
	Comment   string  `json:"comment"`
}

func (ns *NewScore) Validate(validate *validator.Validate, ex Exam) error {
	ns.Comment = core.CleanString(ns.Comment)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Value > ex.MaxScore {
		return core.NewValidationError(nil, core.FieldError{Field: "value", Error: "value cannot exceed the exam's max score"})
	}
	return nil
}

// Filter applies AND operation on its set fields.
type Filter struct {
	SchoolID  string `query:"-"`
	GroupID   string `query:"group_id"`
	TeacherID string `query:"teacher_id"`
}

func (f *Filter) Match(ex Exam) bool {
	if f.SchoolID != "" && ex.SchoolID != f.SchoolID {
		return false
	}
	if f.GroupID != "" && ex.GroupID != f.GroupID {
		return false
	}
	if f.TeacherID != "" && ex.TeacherID != f.TeacherID {
		return false
	}
	return true
}
